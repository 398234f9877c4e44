package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/PdfRAG/internal/adapter"
	"github.com/akolanti/PdfRAG/internal/adapter/utils"
	"github.com/akolanti/PdfRAG/internal/api"
	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/internal/rag/ingest"
)

// UploadDocument godoc
// @Summary      Upload a document for ingestion
// @Description  Saves the file and queues an ingestion job. A source that is already indexed is re-indexed.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        document   formData  file    true   "PDF, DOCX, RTF, ODT or TXT file"
// @Param        source_id  formData  string  false  "Source id, defaults to the file name"
// @Param        title      formData  string  false  "Display title"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.ErrorResponse  "Missing or unsupported file"
// @Failure      413  {object}  api.ErrorResponse  "File too large"
// @Router       /documents/upload [post]
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.upload"
	log := h.logger.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.ingest.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.ingest.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, ragErrors.Capacity(op, "file larger than %d bytes", h.ingest.MaxUploadBytes))
			return
		}
		h.writeError(w, r, ragErrors.Validation(op, "expected a multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		h.writeError(w, r, ragErrors.Validation(op, "form field document is required"))
		return
	}
	defer fileReader.Close()

	name := filepath.Base(fileMetadata.Filename)
	if name == "." || name == string(filepath.Separator) || !ingest.Supported(name) {
		h.writeError(w, r, ragErrors.Validation(op, "unsupported file %q", fileMetadata.Filename))
		return
	}
	sourceID := strings.TrimSpace(r.FormValue("source_id"))
	if sourceID == "" {
		sourceID = ingest.SourceIDFor(name)
	}

	targetDir, err := h.targetDirectory()
	if err != nil {
		log.Error("Couldn't get target directory", "err", err)
		h.writeError(w, r, err)
		return
	}
	tempFilePath := filepath.Join(targetDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
	if err := saveUpload(fileReader, tempFilePath); err != nil {
		log.Error("Couldn't store upload", "err", err)
		h.writeError(w, r, err)
		return
	}

	jobType := jobModel.JobTypeIngest
	if _, err := h.rag.ViewSource(r.Context(), sourceID); err == nil {
		jobType = jobModel.JobTypeReindex
	}
	newJob := jobModel.Job{
		Id:      utils.GetNewUUID(),
		TraceId: traceID(r.Context()),
		JobType: jobType,
		JobPayload: jobModel.JobPayload{
			SourceID: sourceID,
			Title:    strings.TrimSpace(r.FormValue("title")),
			FileName: name,
			FilePath: tempFilePath,
		},
	}
	if err := h.jobs.Submit(r.Context(), newJob); err != nil {
		_ = os.Remove(tempFilePath)
		h.writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.Id))
}

func saveUpload(src io.Reader, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// GetStatus godoc
// @Summary      Get job status
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /status/{id} [get]
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Status(r.Context(), utils.GetChiURLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(job))
}

// RemoveDocument godoc
// @Summary      Remove a source
// @Description  Deletes every chunk of the source. Removing an unknown source is not an error.
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Source ID"
// @Success      200  {object}  api.RemoveSourceResponse
// @Router       /documents/{id} [delete]
func (h *Handler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	id := utils.GetChiURLParam(r, "id")
	removed, err := h.rag.RemoveSource(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.RemoveSourceResponse{SourceID: id, ChunksRemoved: removed})
}

// ViewDocument godoc
// @Summary      View indexed chunks of a source
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Source ID"
// @Success      200  {object}  rag.SourceView
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id}/view [get]
func (h *Handler) ViewDocument(w http.ResponseWriter, r *http.Request) {
	view, err := h.rag.ViewSource(r.Context(), utils.GetChiURLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, view)
}
