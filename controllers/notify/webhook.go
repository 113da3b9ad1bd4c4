package notify

import (
	"log"

	"siamplay/helpers"
	"siamplay/middlewares"
	"siamplay/services"

	"github.com/gofiber/fiber/v2"
)

type webhookBody struct {
	Message string `json:"message"`
	Body    string `json:"body"`
	Text    string `json:"text"`
	Msg     string `json:"msg"`
}

func (b webhookBody) message() string {
	for _, m := range []string{b.Message, b.Body, b.Text, b.Msg} {
		if m != "" {
			return m
		}
	}
	return ""
}

// WebhookHandler ingests one raw bank SMS. Parse failures, unmatched
// transfers, and duplicates are all recorded outcomes, so they answer HTTP
// 200 with a status discriminator; only a missing message is a client error.
func WebhookHandler(c *fiber.Ctx) error {
	var body webhookBody
	_ = c.BodyParser(&body)

	message := body.message()
	if message == "" {
		// Some forwarder apps can only send GET query params.
		message = c.Query("message", c.Query("body", c.Query("text")))
	}
	if message == "" {
		return helpers.JSONError(c, "NO_MESSAGE_PROVIDED")
	}

	reconciler := services.NewReconciler(middlewares.TenantDB(c))
	result, err := reconciler.Reconcile(message)
	if err != nil {
		log.Printf("[Webhook] reconcile error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"status":  "ERROR",
			"message": "internal error",
		})
	}

	resp := fiber.Map{
		"success": result.Outcome == services.OutcomeMatched,
		"status":  string(result.Outcome),
	}
	if result.Log != nil {
		resp["log_id"] = result.Log.ID
	}
	if result.Transaction != nil {
		resp["transaction_id"] = result.Transaction.ID
		resp["amount"] = result.Transaction.Amount
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// WebhookTestHandler lets operators verify the endpoint is reachable from the
// forwarder before wiring real traffic.
func WebhookTestHandler(c *fiber.Ctx) error {
	return helpers.JSONSuccess(c, "SMS webhook is ready", fiber.Map{
		"endpoint": "/notify/webhook",
		"methods":  []string{"POST", "GET"},
		"body":     fiber.Map{"message": "SMS content here"},
	})
}
