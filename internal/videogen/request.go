package videogen

import "strings"

// AspectRatio is one of the frame ratios accepted by the video API.
type AspectRatio string

const (
	AspectLandscape    AspectRatio = "16:9"
	AspectPortrait     AspectRatio = "9:16"
	AspectSquare       AspectRatio = "1:1"
	AspectClassic      AspectRatio = "4:3"
	AspectClassicTall  AspectRatio = "3:4"
	DefaultAspectRatio             = AspectLandscape
)

// Valid reports whether the ratio is one of the supported values.
func (a AspectRatio) Valid() bool {
	switch a {
	case AspectLandscape, AspectPortrait, AspectSquare, AspectClassic, AspectClassicTall:
		return true
	}
	return false
}

// ReferenceImage is an optional image conditioning the generation.
type ReferenceImage struct {
	Data []byte
	MIME string
}

// Settings carries the user-tunable knobs accepted alongside the prompt.
type Settings struct {
	Count            int
	Aspect           AspectRatio
	NegativePrompt   string
	PersonGeneration string
}

// GenerationRequest is a validated, immutable description of one video job.
// Build it through BuildRequest; a zero value never reaches the remote API.
type GenerationRequest struct {
	Prompt           string
	Image            *ReferenceImage
	Count            int
	Aspect           AspectRatio
	NegativePrompt   string
	PersonGeneration string
}

// BuildRequest validates the raw inputs and returns an immutable request.
// The prompt may be empty only when a reference image is supplied. The video
// count is clamped to [1,4] and the aspect ratio defaults to 16:9 when unset.
func BuildRequest(prompt string, image *ReferenceImage, settings Settings) (GenerationRequest, error) {
	prompt = strings.TrimSpace(prompt)
	if image != nil && len(image.Data) == 0 {
		image = nil
	}
	if prompt == "" && image == nil {
		return GenerationRequest{}, ErrPromptRequired
	}

	aspect := settings.Aspect
	if aspect == "" {
		aspect = DefaultAspectRatio
	}
	if !aspect.Valid() {
		return GenerationRequest{}, ErrInvalidAspect
	}

	return GenerationRequest{
		Prompt:           prompt,
		Image:            image,
		Count:            clampCount(settings.Count),
		Aspect:           aspect,
		NegativePrompt:   strings.TrimSpace(settings.NegativePrompt),
		PersonGeneration: strings.TrimSpace(settings.PersonGeneration),
	}, nil
}

func clampCount(count int) int {
	if count < 1 {
		return 1
	}
	if count > 4 {
		return 4
	}
	return count
}
