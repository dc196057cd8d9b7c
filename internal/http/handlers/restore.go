package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"storefront/internal/domain"
	"storefront/internal/flow"
	"storefront/internal/restore"
)

const (
	maxBatchImages          = 20
	defaultInferenceTimeout = 120 * time.Second
	batchDeadlineSlack      = 30 * time.Second
)

type restoreResponse struct {
	Success bool `json:"success"`
	*domain.RestorationJob
	ColorizedImage string    `json:"colorizedImage,omitempty"`
	EnhancedImage  string    `json:"enhancedImage,omitempty"`
	NextStep       flow.Step `json:"nextStep"`
}

// Restore handles a multipart upload with an "image" file and a "services"
// JSON array.
func (a *App) Restore(w http.ResponseWriter, r *http.Request) {
	a.restoreSingle(w, r, nil)
}

// Colorize restores with the colorize service forced.
func (a *App) Colorize(w http.ResponseWriter, r *http.Request) {
	a.restoreSingle(w, r, domain.Services{domain.ServiceColorize})
}

// Enhance restores with the enhance service forced.
func (a *App) Enhance(w http.ResponseWriter, r *http.Request) {
	a.restoreSingle(w, r, domain.Services{domain.ServiceEnhance})
}

func (a *App) restoreSingle(w http.ResponseWriter, r *http.Request, forced domain.Services) {
	if err := a.parseMultipart(w, r, 1); err != nil {
		a.fail(w, r, err, "Failed to restore image")
		return
	}
	services, err := a.formServices(r, forced)
	if err != nil {
		a.fail(w, r, err, "Failed to restore image")
		return
	}
	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		a.error(w, http.StatusBadRequest, domain.KindInvalidInput, "No image file provided")
		return
	}
	img, err := a.readImage(files[0])
	if err != nil {
		a.fail(w, r, err, "Failed to restore image")
		return
	}

	job, err := a.Restorer.Restore(r.Context(), img, services)
	if err != nil {
		a.restoreFailed(w, r, err)
		return
	}
	step, _ := flow.Advance(flow.StepPreview, flow.EventRestored)
	resp := restoreResponse{Success: true, RestorationJob: job, NextStep: step}
	switch {
	case forced.Has(domain.ServiceColorize):
		resp.ColorizedImage = job.RestoredImage
	case forced.Has(domain.ServiceEnhance):
		resp.EnhancedImage = job.RestoredImage
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) restoreFailed(w http.ResponseWriter, r *http.Request, err error) {
	if restore.IsOutputFormat(err) {
		a.log(r).Error().Err(err).Msg("unrecognized model output")
		a.json(w, http.StatusInternalServerError, errorResponse{
			Error:     "Unexpected output format from AI model",
			ErrorKind: domain.KindUnknown,
			Details:   err.Error(),
		})
		return
	}
	a.fail(w, r, err, "Failed to restore image")
}

type batchItemResponse struct {
	Index    int                    `json:"index"`
	Filename string                 `json:"filename"`
	Success  bool                   `json:"success"`
	Job      *domain.RestorationJob `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Kind     domain.Kind            `json:"errorKind,omitempty"`
}

// RestoreBatch restores every "images" file independently. The response is
// 200 whenever at least one image succeeded; per-file failures are reported
// inline.
func (a *App) RestoreBatch(w http.ResponseWriter, r *http.Request) {
	if err := a.parseMultipart(w, r, maxBatchImages); err != nil {
		a.fail(w, r, err, "Failed to restore images")
		return
	}
	services, err := a.formServices(r, nil)
	if err != nil {
		a.fail(w, r, err, "Failed to restore images")
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		a.error(w, http.StatusBadRequest, domain.KindInvalidInput, "No image files provided")
		return
	}
	if len(files) > maxBatchImages {
		a.error(w, http.StatusBadRequest, domain.KindInvalidInput, "Too many images in one batch")
		return
	}
	images := make([]restore.Image, 0, len(files))
	for _, fh := range files {
		img, err := a.readImage(fh)
		if err != nil {
			a.fail(w, r, err, "Failed to restore images")
			return
		}
		images = append(images, img)
	}

	a.extendBatchDeadline(w, r, len(images))
	items := a.Restorer.RestoreBatch(r.Context(), images, services)
	out := make([]batchItemResponse, len(items))
	succeeded := 0
	for i, item := range items {
		out[i] = batchItemResponse{Index: item.Index + 1, Filename: item.Filename, Job: item.Job}
		if item.Err != nil {
			kind := domain.Classify(item.Err)
			out[i].Kind = kind
			out[i].Error = domain.UserMessage(kind, "Failed to restore image")
			if restore.IsOutputFormat(item.Err) {
				out[i].Error = "Unexpected output format from AI model"
			}
			continue
		}
		out[i].Success = true
		succeeded++
	}

	if restore.Failed(items) {
		a.log(r).Warn().Int("failed", len(items)-succeeded).Int("images", len(items)).Msg("batch restore finished with failures")
	}
	status := http.StatusOK
	step := flow.StepServices
	if succeeded > 0 {
		step, _ = flow.Advance(flow.StepPreview, flow.EventRestored)
	} else {
		status = domain.Classify(items[0].Err).HTTPStatus()
	}
	a.json(w, status, map[string]any{
		"success":   succeeded > 0,
		"results":   out,
		"succeeded": succeeded,
		"failed":    len(items) - succeeded,
		"nextStep":  step,
	})
}

// extendBatchDeadline replaces the server-wide write timeout for a batch,
// which may run one full inference timeout per sequential round.
func (a *App) extendBatchDeadline(w http.ResponseWriter, r *http.Request, images int) {
	per := a.Config.InferenceTimeout
	if per <= 0 {
		per = defaultInferenceTimeout
	}
	if a.Config.DemoDelay > per {
		per = a.Config.DemoDelay
	}
	concurrency := max(a.Config.RestoreBatchConcurrency, 1)
	rounds := (images + concurrency - 1) / concurrency
	deadline := time.Now().Add(time.Duration(rounds)*per + batchDeadlineSlack)
	if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
		a.log(r).Warn().Err(err).Msg("extend batch write deadline")
	}
}

func (a *App) parseMultipart(w http.ResponseWriter, r *http.Request, files int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload()*files+(1<<20))
	if err := r.ParseMultipartForm(a.maxUpload()); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.Invalid("upload exceeds %d bytes", maxErr.Limit)
		}
		return domain.Invalid("expected multipart form data")
	}
	return nil
}

func (a *App) formServices(r *http.Request, forced domain.Services) (domain.Services, error) {
	if forced != nil {
		return forced, nil
	}
	return domain.ParseServices(r.FormValue("services"))
}

func (a *App) readImage(fh *multipart.FileHeader) (restore.Image, error) {
	if fh.Size > a.maxUpload() {
		return restore.Image{}, domain.Invalid("image %s exceeds %d bytes", fh.Filename, a.maxUpload())
	}
	f, err := fh.Open()
	if err != nil {
		return restore.Image{}, domain.Invalid("cannot read upload %s", fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, a.maxUpload()+1))
	if err != nil {
		return restore.Image{}, domain.Invalid("cannot read upload %s", fh.Filename)
	}
	return restore.NewImage(fh.Filename, data, a.maxUpload())
}
