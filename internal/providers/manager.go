package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// Cooldowns and backoffs per error class. Quota exhaustion sidelines a
// provider the longest; a permanent error still gets a short cooldown so a
// misconfigured provider does not eat a round trip on every request.
const (
	quotaCooldown     = 5 * time.Minute
	rateCooldown      = 2 * time.Minute
	permanentCooldown = time.Minute
	rateBackoff       = 2 * time.Second
	transientBackoff  = time.Second
)

// Manager holds the configured provider lists and dispatches requests with
// preferred-order failover (configured real providers first, mock last).
// Failures are classified: rate and transient errors get one brief backoff
// retry on the same provider, quota and permanent errors put the provider in
// cooldown before moving on, context errors abort the whole call.
type Manager struct {
	llmProviders   []NamedLLMProvider
	embedProviders []NamedEmbedProvider

	mu       sync.Mutex
	cooldown map[string]time.Time
	now      func() time.Time
	sleep    func(time.Duration)
}

type ManagerConfig struct {
	LLMProviders   string
	EmbedProviders string
	EmbedDim       int
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	llmRefs := ParseProviderList(cfg.LLMProviders)
	embedRefs := ParseProviderList(cfg.EmbedProviders)

	m := &Manager{}
	for _, ref := range llmRefs {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support llm", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	for _, ref := range embedRefs {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	if len(m.embedProviders) == 0 {
		m.embedProviders = []NamedEmbedProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(cfg.EmbedDim)}}
	}
	if len(m.llmProviders) == 0 {
		m.llmProviders = []NamedLLMProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(cfg.EmbedDim)}}
	}
	return m, nil
}

// Embed tries each embedding provider in preferred order until one returns
// vectors.
func (m *Manager) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	var (
		info    ProviderInfo
		lastErr error
	)
	for _, idx := range m.preferredEmbedOrder() {
		key := "embed-" + strconv.Itoa(idx)
		if m.inCooldown(key) {
			continue
		}
		for try := 0; try < 2; try++ {
			vectors, pinfo, err := m.embedProviders[idx].Provider.Embed(ctx, req)
			if err == nil && len(vectors) > 0 {
				return vectors, pinfo, nil
			}
			if err == nil {
				err = fmt.Errorf("provider %s returned no vectors", m.embedProviders[idx].Ref.Name)
			}
			info, lastErr = pinfo, err
			if ClassifyError(err) == ErrorContext {
				return nil, pinfo, err
			}
			if !m.noteFailure(key, err, try) {
				break
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no embedding providers available")
	}
	return nil, info, lastErr
}

// Generate tries each LLM provider in preferred order until one returns
// non-empty text.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	var (
		info    ProviderInfo
		lastErr error
	)
	for _, idx := range m.preferredLLMOrder() {
		key := "llm-" + strconv.Itoa(idx)
		if m.inCooldown(key) {
			continue
		}
		for try := 0; try < 2; try++ {
			resp, pinfo, err := m.llmProviders[idx].Provider.Generate(ctx, req)
			if err == nil && strings.TrimSpace(resp.Text) != "" {
				return resp, pinfo, nil
			}
			if err == nil {
				err = fmt.Errorf("provider %s returned empty text", m.llmProviders[idx].Ref.Name)
			}
			info, lastErr = pinfo, err
			if ClassifyError(err) == ErrorContext {
				return GenerateResponse{}, pinfo, err
			}
			if !m.noteFailure(key, err, try) {
				break
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no llm providers available")
	}
	return GenerateResponse{}, info, lastErr
}

// noteFailure applies the per-class failure policy and reports whether the
// same provider should be tried again after the backoff.
func (m *Manager) noteFailure(key string, err error, try int) bool {
	switch ClassifyError(err) {
	case ErrorQuota:
		m.disable(key, quotaCooldown)
		return false
	case ErrorRate:
		if try == 0 {
			m.pause(rateBackoff)
			return true
		}
		m.disable(key, rateCooldown)
		return false
	case ErrorTransient:
		if try == 0 {
			m.pause(transientBackoff)
			return true
		}
		return false
	default:
		m.disable(key, permanentCooldown)
		return false
	}
}

func (m *Manager) inCooldown(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.cooldown[key]
	return ok && m.timeNow().Before(until)
}

func (m *Manager) disable(key string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cooldown == nil {
		m.cooldown = map[string]time.Time{}
	}
	m.cooldown[key] = m.timeNow().Add(d)
}

func (m *Manager) timeNow() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

func (m *Manager) pause(d time.Duration) {
	if m.sleep != nil {
		m.sleep(d)
		return
	}
	time.Sleep(d)
}

func (m *Manager) EmbedCount() int {
	return len(m.embedProviders)
}

func (m *Manager) LLMCount() int {
	return len(m.llmProviders)
}

func (m *Manager) preferredLLMOrder() []int {
	return preferredOrder(len(m.llmProviders), func(i int) string { return strings.ToLower(m.llmProviders[i].Ref.Name) })
}

func (m *Manager) preferredEmbedOrder() []int {
	return preferredOrder(len(m.embedProviders), func(i int) string { return strings.ToLower(m.embedProviders[i].Ref.Name) })
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaEmbeddingProvider(ref.KeyAlias), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
