package adapter

import (
	"fmt"

	"github.com/akolanti/PdfRAG/internal/api"
	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status: string(job.Status),
		Step:   string(job.CurrentStep),
	}
	if job.Status == jobModel.JobStatusComplete {
		result.IngestResult = ToIngestResult(job.JobPayload)
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToIngestResult(payload jobModel.JobPayload) *api.IngestResult {
	return &api.IngestResult{
		SourceID:       payload.SourceID,
		Title:          payload.Title,
		ChunksIndexed:  payload.ChunksIndexed,
		ChunksEmbedded: payload.ChunksEmbedded,
		ChunksReused:   payload.ChunksReused,
		ChunksRemoved:  payload.ChunksRemoved,
	}
}
