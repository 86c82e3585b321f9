package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yolotrainer/portal/app/models"
	"github.com/yolotrainer/portal/app/repository"
	"github.com/yolotrainer/portal/internal/pkg/account"
	"github.com/yolotrainer/portal/internal/pkg/hcaptcha"
	"github.com/yolotrainer/portal/internal/pkg/mail"
	"github.com/yolotrainer/portal/internal/pkg/metrics"
	"github.com/yolotrainer/portal/internal/pkg/ratelimit"
	"github.com/yolotrainer/portal/internal/pkg/validation"
)

const (
	msgContactReceived = "Thanks for reaching out! We'll get back to you soon."
	msgSubscribed      = "You're subscribed to the newsletter."
)

type SiteController struct {
	contacts   repository.ContactRepository
	newsletter repository.NewsletterRepository
	notifier   account.Notifier
	inbox      string
	captcha    *hcaptcha.Verifier
	log        *zap.Logger
}

func NewSiteController(contacts repository.ContactRepository, newsletter repository.NewsletterRepository, notifier account.Notifier, inbox string, captcha *hcaptcha.Verifier, log *zap.Logger) *SiteController {
	return &SiteController{contacts: contacts, newsletter: newsletter, notifier: notifier, inbox: inbox, captcha: captcha, log: log}
}

type contactRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Subject       string `json:"subject" validate:"required,max=200"`
	Message       string `json:"message" validate:"required,min=10,max=5000"`
	HCaptchaToken string `json:"hCaptchaToken"`
}

// HandleContact is POST /contact.
func (sc *SiteController) HandleContact(c *fiber.Ctx) error {
	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = account.NormalizeEmail(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if err := validation.Struct(req); err != nil {
		if ok, resp := validationJSON(c, err); ok {
			return resp
		}
		return internalError(c, sc.log, "request validation failed", err)
	}
	if err := sc.captcha.Verify(c.UserContext(), req.HCaptchaToken, ratelimit.ClientKey(c)); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, msgCaptchaFailed)
	}

	submission := &models.ContactSubmission{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
		Status:  models.ContactStatusNew,
	}
	if err := sc.contacts.Create(c.UserContext(), submission); err != nil {
		return internalError(c, sc.log, "contact submission failed", err)
	}

	if sc.inbox != "" {
		err := sc.notifier.Send(c.UserContext(), sc.inbox, mail.KindContact, mail.Params{
			"name":    req.Name,
			"email":   req.Email,
			"subject": req.Subject,
			"message": req.Message,
		})
		if err != nil {
			metrics.NotificationFailures.WithLabelValues(string(mail.KindContact)).Inc()
			sc.log.Warn("contact notification not delivered", zap.Uint("submission_id", submission.ID), zap.Error(err))
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msgContactReceived})
}

// HandleNewsletter is POST /newsletter.
func (sc *SiteController) HandleNewsletter(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	req.Email = account.NormalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		if ok, resp := validationJSON(c, err); ok {
			return resp
		}
		return internalError(c, sc.log, "request validation failed", err)
	}

	if err := sc.newsletter.Subscribe(c.UserContext(), req.Email, time.Now().UTC()); err != nil {
		return internalError(c, sc.log, "newsletter subscribe failed", err)
	}
	return c.JSON(fiber.Map{"message": msgSubscribed})
}
