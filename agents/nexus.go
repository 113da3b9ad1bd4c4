package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"siamplay/models"

	"github.com/shopspring/decimal"
)

// NexusClient speaks the JSON method-envelope dialect: every call is a POST to
// the root path with {method, agent_code, agent_token, ...}; status 1 means
// success.
type NexusClient struct {
	baseURL    string
	agentCode  string
	agentToken string
	http       *http.Client
}

func NewNexusClient(cfg *models.AgentConfig) *NexusClient {
	return &NexusClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		agentCode:  cfg.Upline,
		agentToken: cfg.APISecret,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

func (n *NexusClient) Brand() string { return BrandNexus }

type nexusResponse struct {
	Status    int             `json:"status"`
	Msg       string          `json:"msg"`
	User      json.RawMessage `json:"user"`
	Providers json.RawMessage `json:"providers"`
	Games     json.RawMessage `json:"games"`
	Logs      json.RawMessage `json:"logs"`
	LaunchURL string          `json:"launch_url"`
	Balance   json.Number     `json:"balance"`
}

func (n *NexusClient) call(ctx context.Context, method string, extra map[string]any) (*nexusResponse, error) {
	payload := map[string]any{
		"method":      method,
		"agent_code":  n.agentCode,
		"agent_token": n.agentToken,
	}
	for k, v := range extra {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apiErr(BrandNexus, method, "encode payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/", bytes.NewReader(body))
	if err != nil {
		return nil, apiErr(BrandNexus, method, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return nil, apiErr(BrandNexus, method, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apiErr(BrandNexus, method, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiErr(BrandNexus, method, fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	var out nexusResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apiErr(BrandNexus, method, "malformed response", err)
	}
	return &out, nil
}

func (n *NexusClient) Register(ctx context.Context, userID uint, phone string) (*Credentials, error) {
	userCode := fmt.Sprintf("%s_%s", n.agentCode, onlyDigits(phone))

	res, err := n.call(ctx, "user_create", map[string]any{"user_code": userCode})
	if err != nil {
		return nil, err
	}
	if res.Status == 1 || res.Msg == "DUPLICATED_USER" {
		return &Credentials{Username: userCode}, nil
	}
	return nil, apiErr(BrandNexus, "user_create", res.Msg, nil)
}

func (n *NexusClient) GetBalance(ctx context.Context, externalUsername string) (decimal.Decimal, error) {
	res, err := n.call(ctx, "money_info", map[string]any{"user_code": externalUsername})
	if err != nil {
		return decimal.Zero, err
	}
	if res.Status != 1 {
		return decimal.Zero, apiErr(BrandNexus, "money_info", res.Msg, nil)
	}

	var user struct {
		Balance json.Number `json:"balance"`
	}
	if err := json.Unmarshal(res.User, &user); err != nil {
		return decimal.Zero, apiErr(BrandNexus, "money_info", "malformed user", err)
	}
	bal, err := decimal.NewFromString(user.Balance.String())
	if err != nil {
		return decimal.Zero, apiErr(BrandNexus, "money_info", "bad amount "+user.Balance.String(), err)
	}
	return bal, nil
}

func (n *NexusClient) GetAgentBalance(ctx context.Context) (decimal.Decimal, error) {
	res, err := n.call(ctx, "agent_info", nil)
	if err != nil {
		return decimal.Zero, err
	}
	if res.Status != 1 {
		return decimal.Zero, apiErr(BrandNexus, "agent_info", res.Msg, nil)
	}
	bal, err := decimal.NewFromString(res.Balance.String())
	if err != nil {
		return decimal.Zero, apiErr(BrandNexus, "agent_info", "bad amount "+res.Balance.String(), err)
	}
	return bal, nil
}

func (n *NexusClient) LaunchGame(ctx context.Context, externalUsername, providerCode, gameCode, lang string) (string, error) {
	if lang == "" {
		lang = "en"
	}
	// Mixed-lobby suffix is a local routing detail the agent rejects.
	providerCode = strings.TrimSuffix(providerCode, "-mix")

	extra := map[string]any{
		"user_code":     externalUsername,
		"provider_code": providerCode,
		"lang":          lang,
	}
	if gameCode != "" {
		extra["game_code"] = gameCode
	}

	res, err := n.call(ctx, "game_launch", extra)
	if err != nil {
		return "", err
	}
	if res.Status != 1 || res.LaunchURL == "" {
		return "", apiErr(BrandNexus, "game_launch", res.Msg, nil)
	}
	return res.LaunchURL, nil
}

func (n *NexusClient) ListProviders(ctx context.Context) ([]GameProvider, error) {
	res, err := n.call(ctx, "provider_list", nil)
	if err != nil {
		return nil, err
	}
	if res.Status != 1 {
		return nil, apiErr(BrandNexus, "provider_list", res.Msg, nil)
	}

	var providers []GameProvider
	if err := json.Unmarshal(res.Providers, &providers); err != nil {
		return nil, apiErr(BrandNexus, "provider_list", "malformed providers", err)
	}
	return providers, nil
}

func (n *NexusClient) ListGames(ctx context.Context, providerCode string) ([]Game, error) {
	res, err := n.call(ctx, "game_list", map[string]any{"provider_code": providerCode})
	if err != nil {
		return nil, err
	}
	if res.Status != 1 {
		return nil, apiErr(BrandNexus, "game_list", res.Msg, nil)
	}

	var rows []struct {
		Code string `json:"game_code"`
		Name string `json:"game_name"`
	}
	if err := json.Unmarshal(res.Games, &rows); err != nil {
		return nil, apiErr(BrandNexus, "game_list", "malformed games", err)
	}
	games := make([]Game, 0, len(rows))
	for _, row := range rows {
		games = append(games, Game{Code: row.Code, Name: row.Name, ProviderCode: providerCode})
	}
	return games, nil
}

func (n *NexusClient) CheckStatus(ctx context.Context) error {
	res, err := n.call(ctx, "agent_info", nil)
	if err != nil {
		return err
	}
	if res.Status != 1 {
		return apiErr(BrandNexus, "agent_info", res.Msg, nil)
	}
	return nil
}

func (n *NexusClient) GetBetLog(ctx context.Context, cursor int64) ([]BetRecord, error) {
	res, err := n.call(ctx, "get_game_log", map[string]any{"last_id": cursor})
	if err != nil {
		return nil, err
	}
	if res.Status != 1 {
		return nil, apiErr(BrandNexus, "get_game_log", res.Msg, nil)
	}

	var rows []struct {
		ID       int64       `json:"id"`
		UserCode string      `json:"user_code"`
		GameCode string      `json:"game_code"`
		Bet      json.Number `json:"bet_money"`
		Win      json.Number `json:"win_money"`
	}
	if err := json.Unmarshal(res.Logs, &rows); err != nil {
		return nil, apiErr(BrandNexus, "get_game_log", "malformed logs", err)
	}

	records := make([]BetRecord, 0, len(rows))
	for _, row := range rows {
		bet, err := decimal.NewFromString(row.Bet.String())
		if err != nil {
			return nil, apiErr(BrandNexus, "get_game_log", "bad bet amount "+row.Bet.String(), err)
		}
		win := decimal.Zero
		if row.Win.String() != "" {
			if win, err = decimal.NewFromString(row.Win.String()); err != nil {
				return nil, apiErr(BrandNexus, "get_game_log", "bad win amount "+row.Win.String(), err)
			}
		}
		records = append(records, BetRecord{
			ID:        row.ID,
			Username:  row.UserCode,
			GameCode:  row.GameCode,
			BetAmount: bet,
			WinAmount: win,
		})
	}
	return records, nil
}
