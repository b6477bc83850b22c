// internal/common/whatsapp/webclient.go
package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"smartlocker-workers/internal/common/config"
	"smartlocker-workers/internal/models"
)

// WhatsApp Web DOM anchors. These track the web client's markup and are the
// first thing to check when the channel stops pairing or sending.
const (
	selectorChatList     = `[data-testid="chat-list"]`
	selectorQRCode       = `[data-ref]`
	selectorComposeBox   = `[data-testid="conversation-compose-box-input"]`
	selectorComposeAlt   = `div[contenteditable="true"]`
	selectorMessagePanel = `[data-testid="conversation-panel-messages"]`
	selectorMessages     = `[data-testid="msg-container"]`
	selectorMessageText  = `.selectable-text`
)

// sendSettleDelay gives the web client time to flush an outgoing message
// before the page navigates away.
const sendSettleDelay = 2 * time.Second

// WebClient implements Client on top of a Chromium instance driven with rod.
// The browser profile directory persists the WhatsApp login between runs, so
// QR pairing is only needed once per profile.
type WebClient struct {
	cfg    config.WhatsAppConfig
	logger *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func NewWebClient(cfg config.WhatsAppConfig, logger *zap.Logger) *WebClient {
	return &WebClient{
		cfg:    cfg,
		logger: logger,
	}
}

// Establish opens WhatsApp Web and waits for either an existing login or a
// completed QR scan. The session record is mutated to reflect the outcome.
func (c *WebClient) Establish(ctx context.Context, session *models.ChannelSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureBrowser(); err != nil {
		session.Status = models.SessionStatusError
		session.ErrorDetail = err.Error()
		return err
	}

	page, err := c.browser.Page(proto.TargetCreateTarget{URL: c.cfg.WebURL})
	if err != nil {
		session.Status = models.SessionStatusError
		session.ErrorDetail = err.Error()
		return fmt.Errorf("failed to open whatsapp web: %w", err)
	}
	c.page = page

	waitTimeout := config.GetDuration(c.cfg.WaitTimeout)

	// Already paired: the chat list shows up without a QR scan.
	if _, err := page.Timeout(waitTimeout).Element(selectorChatList); err == nil {
		c.markActive(session)
		c.logger.Info("whatsapp session already paired",
			zap.String("sessionId", session.SessionID))
		return nil
	}

	// Fresh profile: surface the QR reference and wait for a scan.
	qrEl, err := page.Timeout(waitTimeout).Element(selectorQRCode)
	if err != nil {
		session.Status = models.SessionStatusError
		session.ErrorDetail = "neither chat list nor QR code appeared"
		return fmt.Errorf("whatsapp web did not render: %w", err)
	}

	if ref, err := qrEl.Attribute("data-ref"); err == nil && ref != nil {
		session.QRRef = *ref
	}
	c.logger.Info("QR code available, waiting for scan",
		zap.String("sessionId", session.SessionID))

	establishTimeout := config.GetDuration(c.cfg.EstablishTimeout)
	if _, err := page.Timeout(establishTimeout).Element(selectorChatList); err != nil {
		session.Status = models.SessionStatusError
		session.ErrorDetail = "QR code scan timeout"
		return fmt.Errorf("QR code scan timed out after %s", establishTimeout)
	}

	c.markActive(session)
	c.logger.Info("whatsapp session established",
		zap.String("sessionId", session.SessionID))
	return nil
}

// Send opens the direct chat for the number and types the message into the
// compose box.
func (c *WebClient) Send(ctx context.Context, phoneNumber, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page == nil {
		return fmt.Errorf("channel not established")
	}

	chatURL := fmt.Sprintf("%s/send?phone=%s", strings.TrimRight(c.cfg.WebURL, "/"), cleanPhone(phoneNumber))
	if err := c.page.Navigate(chatURL); err != nil {
		return fmt.Errorf("failed to open chat for %s: %w", phoneNumber, err)
	}
	if err := c.page.WaitLoad(); err != nil {
		return fmt.Errorf("chat page did not load: %w", err)
	}

	waitTimeout := config.GetDuration(c.cfg.WaitTimeout)

	composeBox, err := c.page.Timeout(waitTimeout).Element(selectorComposeBox)
	if err != nil {
		// The testid attribute comes and goes between web client builds.
		composeBox, err = c.page.Timeout(waitTimeout).Element(selectorComposeAlt)
		if err != nil {
			return fmt.Errorf("compose box not found: %w", err)
		}
	}

	if err := composeBox.Input(message); err != nil {
		return fmt.Errorf("failed to type message: %w", err)
	}
	if err := composeBox.Type(input.Enter); err != nil {
		return fmt.Errorf("failed to submit message: %w", err)
	}

	time.Sleep(sendSettleDelay)
	return nil
}

// PollLatest reads the newest message in the chat with the number. Only
// incoming messages count; an outbound message as the latest entry returns "".
func (c *WebClient) PollLatest(ctx context.Context, phoneNumber string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page == nil {
		return "", fmt.Errorf("channel not established")
	}

	chatURL := fmt.Sprintf("%s/send?phone=%s", strings.TrimRight(c.cfg.WebURL, "/"), cleanPhone(phoneNumber))
	if err := c.page.Navigate(chatURL); err != nil {
		return "", fmt.Errorf("failed to open chat for %s: %w", phoneNumber, err)
	}

	waitTimeout := config.GetDuration(c.cfg.WaitTimeout)
	if _, err := c.page.Timeout(waitTimeout).Element(selectorMessagePanel); err != nil {
		return "", fmt.Errorf("message panel not found: %w", err)
	}

	messages, err := c.page.Elements(selectorMessages)
	if err != nil || len(messages) == 0 {
		return "", nil
	}

	last := messages[len(messages)-1]
	class, err := last.Attribute("class")
	if err != nil || class == nil || !strings.Contains(*class, "message-in") {
		return "", nil
	}

	textEl, err := last.Element(selectorMessageText)
	if err != nil {
		return "", nil
	}
	text, err := textEl.Text()
	if err != nil {
		return "", nil
	}

	return strings.ToUpper(strings.TrimSpace(text)), nil
}

// Teardown closes the browser and releases the profile lock.
func (c *WebClient) Teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.page = nil
	if c.browser != nil {
		if err := c.browser.Close(); err != nil {
			return err
		}
		c.browser = nil
	}
	if c.launcher != nil {
		c.launcher.Cleanup()
		c.launcher = nil
	}
	return nil
}

func (c *WebClient) ensureBrowser() error {
	if c.browser != nil {
		return nil
	}

	l := launcher.New().
		Headless(c.cfg.Headless).
		UserDataDir(c.cfg.UserDataDir)

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	c.launcher = l
	c.browser = browser
	return nil
}

func (c *WebClient) markActive(session *models.ChannelSession) {
	now := time.Now().UTC()
	session.Status = models.SessionStatusActive
	session.LastActivity = &now
	session.ErrorDetail = ""
}

// cleanPhone strips formatting so the number slots into the wa.me URL.
func cleanPhone(phone string) string {
	r := strings.NewReplacer("+", "", " ", "", "-", "", "(", "", ")", "")
	return r.Replace(phone)
}
