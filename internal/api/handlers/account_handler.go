package handlers

import (
	"errors"
	"fmt"
	"log"
	"log/slog"

	config "github.com/agencykit/instaflow/configs"
	"github.com/agencykit/instaflow/internal/service"
	"github.com/gofiber/fiber/v2"
)

type AccountHandler struct {
	oauth    service.OAuthService
	accounts service.AccountService
	tokens   service.TokenService
	cfg      config.Config
}

func NewAccountHandler(oauth service.OAuthService, accounts service.AccountService, tokens service.TokenService, cfg config.Config) *AccountHandler {
	return &AccountHandler{
		oauth:    oauth,
		accounts: accounts,
		tokens:   tokens,
		cfg:      cfg,
	}
}

// ConnectInstagram starts the OAuth handshake: persist a state row, then
// send the browser to the Facebook login dialog.
func (h *AccountHandler) ConnectInstagram(c *fiber.Ctx) error {
	userID := GetUserID(c)
	orgID := int64(c.QueryInt("organization_id", 0))

	redirectURL := c.Query("redirect_url")
	if redirectURL == "" {
		redirectURL = fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	}

	authURL, err := h.oauth.GetAuthURL(c.Context(), userID, orgID, redirectURL)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to start Instagram connection",
		})
	}

	return c.Redirect(authURL)
}

func (h *AccountHandler) InstagramCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")

	result, err := h.oauth.HandleCallback(c.Context(), code, state)
	if err != nil {
		slog.Info(err.Error())
		status := fiber.StatusBadRequest
		message := "something went wrong"
		switch service.KindOf(err) {
		case service.ErrKindInvalidState:
			message = "invalid or expired oauth state"
		case service.ErrKindNoInstagramAccount:
			message = "no instagram business account found"
		}
		return c.Status(status).JSON(fiber.Map{"error": message})
	}

	log.Printf("Connected %d instagram account(s)", result.AccountsConnected)
	return c.Redirect(result.RedirectURL, fiber.StatusTemporaryRedirect)
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountList, err := h.accounts.List(c.Context(), userID)
	if err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch connected accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

// DisconnectAccount soft-deactivates; the row (and its publish history)
// stays.
func (h *AccountHandler) DisconnectAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	err := h.accounts.Disconnect(c.Context(), userID, int64(accountID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *AccountHandler) RefreshAccountToken(c *fiber.Ctx) error {
	accountID := c.QueryInt("id", 0)

	err := h.tokens.RefreshAccountToken(c.Context(), int64(accountID))
	if err != nil {
		var status int
		if service.KindOf(err) == service.ErrKindAccountNotFound {
			status = fiber.StatusNotFound
		} else {
			status = fiber.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{"error": errMessage(err)})
	}

	return c.SendStatus(fiber.StatusOK)
}

func errMessage(err error) string {
	var pe *service.PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
