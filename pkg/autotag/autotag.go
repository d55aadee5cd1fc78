// Package autotag asks a Gemini model which existing labels describe an image.
package autotag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	// decoders for imgio.Open
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"google.golang.org/genai"
	"k8s.io/klog/v2"

	"github.com/tstromberg/imagetag/pkg/labels"
	"github.com/tstromberg/imagetag/pkg/media"
)

var (
	// DefaultModel is the Gemini model used for suggestions.
	DefaultModel = "gemini-2.5-flash"
	// ThumbHeight and ThumbQuality size the image sent to the model.
	ThumbHeight  = 350
	ThumbQuality = 80
	// MaxLabels is the most labels a single image is given.
	MaxLabels = 5
)

var (
	ErrUnsupported = errors.New("not a still image")
	ErrNoAPIKey    = errors.New("no API key")
	ErrNoLabels    = errors.New("no labels to choose from")
)

// Thumbnail returns JPEG bytes of the image at path scaled to height pixels tall.
func Thumbnail(path string, height int, quality int) ([]byte, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imgio.Open: %w", err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%s has no pixels: %v", path, b)
	}
	scale := float64(b.Dy()) / float64(height)
	x := max(1, int(float64(b.Dx())/scale))

	rimg := transform.Resize(img, x, height, transform.Lanczos)
	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(quality)(&buf, rimg); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Prompt asks for up to MaxLabels of the candidate names.
func Prompt(candidates []string) string {
	return fmt.Sprintf("Pick between 1 and %d labels that describe this photo, chosen only from this list: %s. "+
		"Reply with the chosen labels separated by commas and nothing else. "+
		"Prefer specific labels over general ones. If none fit, reply with an empty line.",
		MaxLabels, strings.Join(candidates, ", "))
}

// Pick extracts the candidate names mentioned in a model reply, in reply order.
// Names are matched ignoring case and returned in their candidate spelling.
func Pick(reply string, candidates []string) []string {
	out := []string{}
	for _, part := range strings.Split(reply, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'.`)
		if part == "" {
			continue
		}
		for _, c := range candidates {
			if labels.Equal(c, part) && !containsFold(out, c) {
				out = append(out, c)
				break
			}
		}
		if len(out) == MaxLabels {
			break
		}
	}
	return out
}

func containsFold(names []string, n string) bool {
	for _, x := range names {
		if labels.Equal(x, n) {
			return true
		}
	}
	return false
}

// Generator is the part of the genai client a Suggester calls.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Suggester picks labels for images.
type Suggester struct {
	gen   Generator
	model string
}

// New connects to the Gemini API. A nil hc uses the default HTTP client.
func New(ctx context.Context, apiKey string, model string, hc *http.Client) (*Suggester, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return NewWithGenerator(client.Models, model), nil
}

// NewWithGenerator returns a Suggester using gen.
func NewWithGenerator(gen Generator, model string) *Suggester {
	if model == "" {
		model = DefaultModel
	}
	return &Suggester{gen: gen, model: model}
}

// Suggest returns the candidates the model thinks describe the image at path.
func (s *Suggester) Suggest(ctx context.Context, path string, candidates []string) ([]string, error) {
	if !media.IsImage(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	if len(candidates) == 0 {
		return nil, ErrNoLabels
	}

	thumb, err := Thumbnail(path, ThumbHeight, ThumbQuality)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(thumb, "image/jpeg"),
			genai.NewPartFromText(Prompt(candidates)),
		}, genai.RoleUser),
	}

	resp, err := s.gen.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	reply := resp.Text()
	klog.V(1).Infof("%s: model replied %q", path, reply)
	return Pick(reply, candidates), nil
}
