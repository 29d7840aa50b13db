package nvidia

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"dp-normalizer/api/internal/llm"
)

const DefaultBaseURL = "https://integrate.api.nvidia.com"

// Engine talks to the OpenAI-compatible chat completions endpoint hosted by
// NVIDIA. Keys are resolved per profile key; "" holds the shared key.
type Engine struct {
	keys   map[string]string
	client *resty.Client
}

func New(baseURL string, keys map[string]string) *Engine {
	return newEngine(resty.New(), baseURL, keys)
}

// WithHTTPClient rebuilds the engine on top of c (custom transports, tests).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c == nil {
		return e
	}
	return newEngine(resty.NewWithClient(c), e.client.BaseURL, e.keys)
}

func newEngine(client *resty.Client, baseURL string, keys map[string]string) *Engine {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	client.
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "text/event-stream").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(4 * time.Second).
		AddRetryCondition(retryCondition)
	k := make(map[string]string, len(keys))
	for name, v := range keys {
		k[name] = strings.TrimSpace(v)
	}
	return &Engine{keys: k, client: client}
}

func (e *Engine) Name() string { return string(llm.ProviderNVIDIA) }

func (e *Engine) apiKey(p llm.Profile) string {
	if k := e.keys[p.Key]; k != "" {
		return k
	}
	return e.keys[""]
}

func (e *Engine) Invoke(ctx context.Context, req llm.Request) (string, error) {
	key := e.apiKey(req.Profile)
	if key == "" {
		return "", fmt.Errorf("nvidia: API key for profile %q is empty", req.Profile.Key)
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+key).
		SetBody(buildBody(req)).
		SetDoNotParseResponse(true).
		Post("/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("nvidia %s: %w", req.Profile.Model, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(body, 4096))
		return "", fmt.Errorf("nvidia %s %d: %s", req.Profile.Model, resp.StatusCode(), strings.TrimSpace(string(x)))
	}

	out, err := readStream(body)
	if err != nil {
		return "", fmt.Errorf("nvidia %s: read stream: %w", req.Profile.Model, err)
	}
	return out, nil
}

func buildBody(req llm.Request) map[string]any {
	system := req.System
	if req.Profile.Reasoning == llm.ReasoningSystemPrefix && !req.Thinking {
		system = llm.NoThinkDirective + "\n" + system
	}

	var messages []any
	if strings.TrimSpace(system) != "" {
		messages = append(messages, map[string]any{"role": "system", "content": system})
	}
	if len(req.Images) == 0 {
		messages = append(messages, map[string]any{"role": "user", "content": req.Text})
	} else {
		content := make([]any, 0, len(req.Images)+1)
		for _, img := range req.Images {
			content = append(content, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": img.DataURL()},
			})
		}
		content = append(content, map[string]any{"type": "text", "text": req.Text})
		messages = append(messages, map[string]any{"role": "user", "content": content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	body := map[string]any{
		"model":             req.Profile.Model,
		"messages":          messages,
		"max_tokens":        maxTokens,
		"temperature":       req.Temperature,
		"top_p":             1,
		"frequency_penalty": 0,
		"presence_penalty":  0,
		"stream":            true,
	}
	if req.Profile.Reasoning == llm.ReasoningTemplate {
		body["chat_template_kwargs"] = map[string]any{"enable_thinking": req.Thinking}
	}
	return body
}

// maxCompletionBytes bounds a buffered non-stream completion body.
const maxCompletionBytes = 16 << 20

// readStream concatenates content deltas of an SSE chat completion stream.
// Reasoning deltas are skipped. A plain (non-stream) completion body is
// accepted as well, pretty-printed or not.
func readStream(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	first, err := skipSpace(br)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if first == '{' {
		return readCompletion(br)
	}

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var b strings.Builder
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}
		if !gjson.Valid(data) {
			continue
		}
		delta := gjson.Get(data, "choices.0.delta")
		if delta.Get("reasoning_content").String() != "" {
			continue
		}
		b.WriteString(delta.Get("content").String())
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

// skipSpace returns the first non-space byte without consuming it.
func skipSpace(br *bufio.Reader) (byte, error) {
	for {
		c, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(rune(c)) {
			return c, br.UnreadByte()
		}
	}
}

func readCompletion(r io.Reader) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxCompletionBytes))
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("invalid completion body")
	}
	return strings.TrimSpace(gjson.GetBytes(body, "choices.0.message.content").String()), nil
}

func retryCondition(r *resty.Response, err error) bool {
	if r != nil && r.Request != nil && r.Request.Context().Err() != nil {
		return false
	}
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	if code != http.StatusTooManyRequests && code < 500 {
		return false
	}
	releaseBody(r)
	return true
}

// releaseBody closes the raw body of a response about to be retried, which
// resty leaves open when parsing is disabled. A bounded copy replaces it so
// the last attempt can still report the server's message.
func releaseBody(r *resty.Response) {
	if r.RawResponse == nil || r.RawResponse.Body == nil {
		return
	}
	body := r.RawResponse.Body
	head, _ := io.ReadAll(io.LimitReader(body, 4096))
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
	r.RawResponse.Body = io.NopCloser(bytes.NewReader(head))
}
