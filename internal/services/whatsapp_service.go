package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledropshop/wa-drops-backend/internal/config"
	"github.com/ledropshop/wa-drops-backend/internal/models"
)

// WhatsAppService talks to the session gateway (WAHA-compatible API). The
// gateway is a black box: every call may fail on its own and callers must
// treat failures per invocation.
type WhatsAppService struct {
	baseURL string
	session string
	apiKey  string
	client  *http.Client
}

func NewWhatsAppService(cfg *config.GatewayConfig) *WhatsAppService {
	return &WhatsAppService{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		session: cfg.Session,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type sendTextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
}

type sendTextResponse struct {
	ID string `json:"id"`
}

// SendArticle delivers one article announcement to one group and returns
// the gateway message id
func (s *WhatsAppService) SendArticle(ctx context.Context, group *models.WhatsAppGroup, article *models.Article) (string, error) {
	payload := sendTextRequest{
		Session: s.session,
		ChatID:  group.ChatID,
		Text:    composeArticleMessage(article),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/sendText", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed sendTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse gateway response: %w", err)
	}
	return parsed.ID, nil
}

type gatewayGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FetchGroups lists the groups visible to the gateway session
func (s *WhatsAppService) FetchGroups(ctx context.Context) ([]models.WhatsAppGroup, error) {
	url := fmt.Sprintf("%s/api/%s/groups", s.baseURL, s.session)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var raw []gatewayGroup
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	groups := make([]models.WhatsAppGroup, 0, len(raw))
	for _, g := range raw {
		groups = append(groups, models.WhatsAppGroup{
			Name:   g.Name,
			ChatID: g.ID,
		})
	}
	return groups, nil
}

// composeArticleMessage builds the broadcast text for one article
func composeArticleMessage(article *models.Article) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔥 %s — %.2f€\n", article.Name, float64(article.PriceCents)/100))
	if article.Description != "" {
		b.WriteString(article.Description)
		b.WriteString("\n")
	}
	if article.ImageURL != "" {
		b.WriteString(article.ImageURL)
	}
	return strings.TrimSpace(b.String())
}
