package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"siamplay/models"

	"github.com/shopspring/decimal"
)

// BetflixClient speaks the form-encoded Betflix dialect: url-encoded POST
// bodies, x-api-key / x-api-cat headers, "success" status strings.
type BetflixClient struct {
	baseURL string
	apiKey  string
	apiCat  string
	upline  string
	http    *http.Client
}

func NewBetflixClient(cfg *models.AgentConfig) *BetflixClient {
	return &BetflixClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		apiCat:  cfg.APISecret,
		upline:  cfg.Upline,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (b *BetflixClient) Brand() string { return BrandBetflix }

type betflixEnvelope struct {
	Status string          `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

func (b *BetflixClient) post(ctx context.Context, op, path string, form url.Values) (*betflixEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apiErr(BrandBetflix, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("x-api-key", b.apiKey)
	req.Header.Set("x-api-cat", b.apiCat)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, apiErr(BrandBetflix, op, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apiErr(BrandBetflix, op, "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiErr(BrandBetflix, op, fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	var env betflixEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apiErr(BrandBetflix, op, "malformed response", err)
	}
	return &env, nil
}

// applyPrefix qualifies a local username with the upline identifier the agent
// knows us by. Already-qualified names pass through unchanged.
func (b *BetflixClient) applyPrefix(username string) string {
	name := strings.TrimSpace(username)
	if name == "" || strings.HasPrefix(strings.ToLower(name), strings.ToLower(b.upline)) {
		return name
	}
	return b.upline + name
}

func (b *BetflixClient) Register(ctx context.Context, userID uint, phone string) (*Credentials, error) {
	digits := onlyDigits(phone)
	username := b.applyPrefix(digits)
	if len(digits) >= 6 {
		username = b.applyPrefix(digits[len(digits)-6:])
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", digits)

	env, err := b.post(ctx, "register", "/v4/user/register", form)
	if err != nil {
		return nil, err
	}
	if env.Status == "success" {
		return &Credentials{Username: username, Password: digits}, nil
	}

	// The agent treats re-registration as an error; we treat it as success.
	msg := strings.ToLower(env.Msg)
	if strings.Contains(msg, "exist") || strings.Contains(msg, "duplicate") || strings.Contains(msg, "already") {
		return &Credentials{Username: username, Password: digits}, nil
	}
	return nil, apiErr(BrandBetflix, "register", env.Msg, nil)
}

func (b *BetflixClient) GetBalance(ctx context.Context, externalUsername string) (decimal.Decimal, error) {
	form := url.Values{}
	form.Set("username", b.applyPrefix(externalUsername))

	env, err := b.post(ctx, "balance", "/v4/user/balance", form)
	if err != nil {
		return decimal.Zero, err
	}
	if env.Status != "success" {
		return decimal.Zero, apiErr(BrandBetflix, "balance", env.Msg, nil)
	}

	var data struct {
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return decimal.Zero, apiErr(BrandBetflix, "balance", "malformed data", err)
	}
	bal, err := decimal.NewFromString(data.Balance)
	if err != nil {
		return decimal.Zero, apiErr(BrandBetflix, "balance", "bad amount "+data.Balance, err)
	}
	return bal, nil
}

func (b *BetflixClient) GetAgentBalance(ctx context.Context) (decimal.Decimal, error) {
	env, err := b.post(ctx, "agent_balance", "/v4/agent/balance", url.Values{})
	if err != nil {
		return decimal.Zero, err
	}
	if env.Status != "success" {
		return decimal.Zero, apiErr(BrandBetflix, "agent_balance", env.Msg, nil)
	}

	var data struct {
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return decimal.Zero, apiErr(BrandBetflix, "agent_balance", "malformed data", err)
	}
	bal, err := decimal.NewFromString(data.Balance)
	if err != nil {
		return decimal.Zero, apiErr(BrandBetflix, "agent_balance", "bad amount "+data.Balance, err)
	}
	return bal, nil
}

// LaunchGame builds the entry URL client-side; Betflix has no launch endpoint.
func (b *BetflixClient) LaunchGame(ctx context.Context, externalUsername, providerCode, gameCode, lang string) (string, error) {
	if lang == "" {
		lang = "en"
	}
	params := url.Values{}
	params.Set("username", b.applyPrefix(externalUsername))
	params.Set("provider", providerCode)
	if gameCode != "" {
		params.Set("code", gameCode)
	}
	params.Set("lang", lang)
	return b.baseURL + "/play.php?" + params.Encode(), nil
}

func (b *BetflixClient) ListProviders(ctx context.Context) ([]GameProvider, error) {
	env, err := b.post(ctx, "camps", "/v4/game/camps", url.Values{})
	if err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, apiErr(BrandBetflix, "camps", env.Msg, nil)
	}

	var data []struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, apiErr(BrandBetflix, "camps", "malformed data", err)
	}
	providers := make([]GameProvider, 0, len(data))
	for _, d := range data {
		providers = append(providers, GameProvider{Code: d.Code, Name: d.Name})
	}
	return providers, nil
}

// ListGames always returns empty: Betflix exposes no per-provider game list.
func (b *BetflixClient) ListGames(ctx context.Context, providerCode string) ([]Game, error) {
	return []Game{}, nil
}

func (b *BetflixClient) CheckStatus(ctx context.Context) error {
	_, err := b.GetAgentBalance(ctx)
	return err
}

func (b *BetflixClient) GetBetLog(ctx context.Context, cursor int64) ([]BetRecord, error) {
	form := url.Values{}
	form.Set("id", strconv.FormatInt(cursor, 10))

	env, err := b.post(ctx, "get_bet_log", "/v4/get_bet_log", form)
	if err != nil {
		return nil, err
	}
	if env.Status != "success" {
		return nil, apiErr(BrandBetflix, "get_bet_log", env.Msg, nil)
	}

	var rows []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		GameCode string `json:"game_code"`
		Bet      string `json:"bet"`
		Win      string `json:"win"`
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, apiErr(BrandBetflix, "get_bet_log", "malformed data", err)
	}

	records := make([]BetRecord, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.ParseInt(row.ID, 10, 64)
		if err != nil {
			return nil, apiErr(BrandBetflix, "get_bet_log", "bad log id "+row.ID, err)
		}
		bet, err := decimal.NewFromString(row.Bet)
		if err != nil {
			return nil, apiErr(BrandBetflix, "get_bet_log", "bad bet amount "+row.Bet, err)
		}
		win := decimal.Zero
		if row.Win != "" {
			if win, err = decimal.NewFromString(row.Win); err != nil {
				return nil, apiErr(BrandBetflix, "get_bet_log", "bad win amount "+row.Win, err)
			}
		}
		records = append(records, BetRecord{
			ID:        id,
			Username:  row.Username,
			GameCode:  row.GameCode,
			BetAmount: bet,
			WinAmount: win,
		})
	}
	return records, nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
