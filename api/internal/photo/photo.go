package photo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"dp-normalizer/api/internal/llm"
)

// MaxBytes caps a single photo.
const MaxBytes = 16 << 20

// maxReaders bounds concurrent photo reads per request.
const maxReaders = 4

var allowed = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var ErrUnsupported = errors.New("unsupported photo type")

// Loader reads photos given as file paths (relative to Root) or base64 /
// data URLs.
type Loader struct {
	Root string
}

// LoadAll reads every source in parallel and keeps the input order.
func (l Loader) LoadAll(ctx context.Context, sources []string) ([]llm.Image, error) {
	out := make([]llm.Image, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxReaders)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := l.Load(src)
			if err != nil {
				return fmt.Errorf("photo %d: %w", i+1, err)
			}
			out[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l Loader) Load(src string) (llm.Image, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return llm.Image{}, errors.New("empty photo source")
	}
	var (
		data []byte
		hint string
		err  error
	)
	if isInline(src) {
		data, hint, err = DecodeBase64MaybeDataURL(src)
	} else {
		data, err = l.readFile(src)
	}
	if err != nil {
		return llm.Image{}, err
	}
	if len(data) == 0 {
		return llm.Image{}, errors.New("photo is empty")
	}
	if len(data) > MaxBytes {
		return llm.Image{}, fmt.Errorf("photo is %d bytes, limit is %d", len(data), MaxBytes)
	}
	mime := PickMIME(hint, data)
	if !allowed[mime] {
		return llm.Image{}, fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}
	return llm.Image{MIME: mime, Data: data}, nil
}

func (l Loader) readFile(p string) ([]byte, error) {
	if l.Root != "" {
		clean := filepath.Clean("/" + p)
		p = filepath.Join(l.Root, clean)
	}
	return os.ReadFile(p)
}

func isInline(s string) bool {
	if strings.HasPrefix(s, "data:") {
		return true
	}
	// Paths are short and carry a separator or an extension; base64 payloads
	// of real photos are neither.
	return len(s) > 512 && !strings.ContainsAny(s, `\ `)
}

// DecodeBase64MaybeDataURL decodes base64, returning the MIME of a data URL
// prefix when there is one.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hintMIME string
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		if idx := strings.IndexByte(rest, ','); idx > 0 {
			meta := rest[:idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hintMIME = meta[:semi]
			} else {
				hintMIME = meta
			}
			s = rest[idx+1:]
		}
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, hintMIME, nil
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("bad base64: %w", err)
	}
	return b, hintMIME, nil
}

// PickMIME sniffs the bytes; the data URL hint only breaks ties the
// detectors cannot settle.
func PickMIME(hint string, data []byte) string {
	head := data
	if len(head) > 3072 {
		head = head[:3072]
	}
	mt := http.DetectContentType(head)
	if mt == "application/octet-stream" {
		mt = mimetype.Detect(head).String()
	}
	if mt == "application/octet-stream" {
		if h := strings.ToLower(strings.TrimSpace(hint)); h != "" {
			return h
		}
	}
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}
