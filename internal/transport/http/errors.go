package http

import (
	"errors"
	"net/http"

	apierrors "solarcli/internal/errors"
	"solarcli/internal/ingest"
	"solarcli/internal/services"
)

// mapServiceError translates service sentinels into API errors. Anything
// else passes through to the error handler unchanged.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrNoData):
		return apierrors.NewWithDetails(http.StatusNotFound, apierrors.CodeNoData, apierrors.ErrNoData.Message, err.Error())
	case errors.Is(err, services.ErrUnknownMetric):
		return apierrors.BadQuery(apierrors.CodeUnknownMetric, "metric", err)
	case errors.Is(err, services.ErrUnknownCountry):
		return apierrors.BadQuery(apierrors.CodeUnknownCountry, "country", err)
	case errors.Is(err, services.ErrInvalidPeriod):
		return apierrors.BadQuery(apierrors.CodeInvalidPeriod, "period", err)
	case errors.Is(err, services.ErrInvalidBins):
		return apierrors.BadQuery(apierrors.CodeInvalidBins, "bins", err)
	case errors.Is(err, services.ErrOperationNotFound):
		return apierrors.NewWithDetails(http.StatusNotFound, apierrors.CodeOperationNotFound, apierrors.ErrOperationNotFound.Message, err.Error())
	case errors.Is(err, services.ErrOperationRunning):
		return apierrors.ErrOperationRunning
	case ingest.IsParseError(err):
		return apierrors.NewParsingError("cleaned data file could not be parsed", err)
	case errors.Is(err, services.ErrAnalysisFailed):
		return apierrors.NewAnalysisError("failed to analyze cleaned data", err)
	}
	return err
}
