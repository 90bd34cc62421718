package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"veostudio/internal/middleware"
	"veostudio/internal/videogen"
)

type videoGenerateRequest struct {
	Prompt           string `json:"prompt"`
	ImageBase64      string `json:"image_base64,omitempty"`
	ImageMIME        string `json:"image_mime,omitempty"`
	Count            int    `json:"count,omitempty"`
	AspectRatio      string `json:"aspect_ratio,omitempty"`
	NegativePrompt   string `json:"negative_prompt,omitempty"`
	PersonGeneration string `json:"person_generation,omitempty"`
}

type videoResourceResponse struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	MIME  string `json:"mime"`
	Bytes int64  `json:"bytes"`
	Index int    `json:"index"`
}

// VideosGenerate runs one generation synchronously and answers with either
// the full batch of produced videos or a single classified error. The API key
// never leaves the server; clients fetch artifacts through /static.
func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	var req videoGenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	var image *videogen.ReferenceImage
	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "image_base64 is not valid base64")
			return
		}
		image = &videogen.ReferenceImage{Data: data, MIME: req.ImageMIME}
	}

	batch, err := a.Controller.Submit(r.Context(), req.Prompt, image, videogen.Settings{
		Count:            req.Count,
		Aspect:           videogen.AspectRatio(req.AspectRatio),
		NegativePrompt:   req.NegativePrompt,
		PersonGeneration: req.PersonGeneration,
	})
	if err != nil {
		a.writeGenerationError(w, r, err)
		return
	}

	a.json(w, http.StatusOK, map[string]any{"items": resourceItems(batch)})
}

// VideosList returns the session's current batch.
func (a *App) VideosList(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": resourceItems(a.Controller.Current())})
}

// VideosProgress reports the stage of the in-flight (or last) run.
func (a *App) VideosProgress(w http.ResponseWriter, r *http.Request) {
	progress := a.Controller.Progress()
	a.json(w, http.StatusOK, map[string]any{
		"busy":    a.Controller.Busy(),
		"stage":   progress.Stage,
		"attempt": progress.Attempt,
		"max":     progress.Max,
	})
}

// VideosClear releases every current resource and resets the session.
func (a *App) VideosClear(w http.ResponseWriter, r *http.Request) {
	a.Controller.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) writeGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, videogen.ErrBusy) {
		a.error(w, http.StatusConflict, "busy", localize(r, "busy"))
		return
	}

	var classified *videogen.ClassifiedError
	if !errors.As(err, &classified) {
		a.error(w, http.StatusInternalServerError, "internal", "generation failed")
		return
	}

	a.Logger.Error().
		Err(classified.Cause).
		Str("kind", string(classified.Kind)).
		Msg("handlers: video generation failed")
	a.error(w, statusForKind(classified.Kind), string(classified.Kind), localizedMessage(r, classified))
}

func statusForKind(kind videogen.ErrorKind) int {
	switch kind {
	case videogen.KindValidation:
		return http.StatusBadRequest
	case videogen.KindRateLimit:
		return http.StatusTooManyRequests
	case videogen.KindNotFound:
		return http.StatusNotFound
	case videogen.KindTimeout:
		return http.StatusGatewayTimeout
	case videogen.KindDownload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func resourceItems(batch []*videogen.GeneratedResource) []videoResourceResponse {
	items := make([]videoResourceResponse, 0, len(batch))
	for _, res := range batch {
		items = append(items, videoResourceResponse{
			ID:    res.ID,
			URL:   "/static/" + res.Key,
			MIME:  res.MIME,
			Bytes: res.Size,
			Index: res.Index,
		})
	}
	return items
}

// Fixed per-kind messages that have an Indonesian translation. Anything not
// listed falls through to the classified English message.
var localizedMessages = map[string]map[videogen.ErrorKind]string{
	"id": {
		videogen.KindRateLimit: "Kuota API habis. Periksa paket dan detail penagihan Anda, atau coba lagi nanti.",
		videogen.KindTimeout:   "Waktu tunggu pembuatan video habis. Pekerjaan mungkin masih berjalan di server; coba lagi nanti.",
	},
}

func localizedMessage(r *http.Request, classified *videogen.ClassifiedError) string {
	locale := middleware.LocaleFromContext(r.Context())
	if byKind, ok := localizedMessages[locale]; ok {
		if msg, ok := byKind[classified.Kind]; ok {
			return msg
		}
	}
	return classified.Message
}

func localize(r *http.Request, key string) string {
	if middleware.LocaleFromContext(r.Context()) == "id" {
		switch key {
		case "busy":
			return "Pembuatan video lain sedang berjalan."
		}
	}
	switch key {
	case "busy":
		return "Another generation is already in progress."
	}
	return key
}
