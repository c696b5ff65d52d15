package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "solarcli/internal/errors"
	"solarcli/internal/infrastructure"
	"solarcli/pkg/contracts/domain"
)

// DefaultMaxBodySize caps JSON request bodies
const DefaultMaxBodySize = 1 << 20

// Validator decodes query strings and JSON bodies into tagged structs and
// validates them. Failures are returned as *apierrors.APIError.
type Validator struct {
	validate    *validator.Validate
	logger      *slog.Logger
	maxBodySize int64
}

// NewValidator creates a validator with the metric and country rules registered
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()

	v.RegisterValidation("metric", isMetric)
	v.RegisterValidation("metrics", isMetricList)
	v.RegisterValidation("country", isCountry)
	v.RegisterValidation("countries", isCountryList)

	// Report fields by their wire names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &Validator{
		validate:    v,
		logger:      infrastructure.WithComponent(logger, "validator"),
		maxBodySize: DefaultMaxBodySize,
	}
}

// Struct validates s
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return toAPIError(fieldErrs)
	}
	return apierrors.InvalidRequestWithError(err)
}

// DecodeQuery fills the string, []string, int and bool fields of dst that carry a
// query tag, then validates dst. Lists accept repeated and comma separated values.
func (v *Validator) DecodeQuery(r *http.Request, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode query: want pointer to struct, got %T", dst)
	}
	rv = rv.Elem()
	rt := rv.Type()
	query := r.URL.Query()

	for i := 0; i < rt.NumField(); i++ {
		name := strings.SplitN(rt.Field(i).Tag.Get("query"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		values, ok := query[name]
		if !ok {
			continue
		}

		field := rv.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(strings.TrimSpace(strings.Join(values, ",")))
		case reflect.Slice:
			if field.Type().Elem().Kind() != reflect.String {
				continue
			}
			list := splitList(values)
			field.Set(reflect.ValueOf(list).Convert(field.Type()))
		case reflect.Int:
			n, err := strconv.Atoi(strings.TrimSpace(values[0]))
			if err != nil {
				return apierrors.ErrValidation(name, fmt.Sprintf("%s must be an integer", name))
			}
			field.SetInt(int64(n))
		case reflect.Bool:
			b, err := strconv.ParseBool(strings.TrimSpace(values[0]))
			if err != nil {
				return apierrors.ErrValidation(name, fmt.Sprintf("%s must be true or false", name))
			}
			field.SetBool(b)
		}
	}

	return v.Struct(dst)
}

// DecodeJSON reads a JSON body into dst and validates it. An empty body
// leaves dst at its zero value.
func (v *Validator) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body != nil {
		body := http.MaxBytesReader(w, r.Body, v.maxBodySize)
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			v.logger.DebugContext(r.Context(), "rejected request body",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return apierrors.NewWithDetails(http.StatusRequestEntityTooLarge, apierrors.CodeInvalidRequest,
					"Request body exceeds maximum allowed size", map[string]interface{}{"max_size": tooLarge.Limit})
			}
			return apierrors.InvalidRequestWithError(err)
		}
	}
	return v.Struct(dst)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func toAPIError(errs validator.ValidationErrors) *apierrors.APIError {
	fields := make([]apierrors.ValidationError, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}

	// A single bad metric, country, period or bin count gets its specific code
	if len(errs) == 1 {
		if code := errorCode(errs[0]); code != "" {
			return apierrors.NewWithDetails(http.StatusBadRequest, code, fields[0].Message, fields)
		}
	}
	return apierrors.NewValidationErrors(fields)
}

func errorCode(fe validator.FieldError) string {
	switch fe.Tag() {
	case "metric", "metrics":
		return apierrors.CodeUnknownMetric
	case "country", "countries":
		return apierrors.CodeUnknownCountry
	}
	switch fe.Field() {
	case "period":
		return apierrors.CodeInvalidPeriod
	case "bins":
		return apierrors.CodeInvalidBins
	}
	return ""
}

// formatValidationError formats validation error messages
func formatValidationError(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "metric", "metrics":
		return fmt.Sprintf("%s has unknown metric %q; expected one of: %s", field, fe.Value(), metricNames())
	case "country", "countries":
		return fmt.Sprintf("%s has unknown country %q; expected one of: %s", field, fe.Value(), countryNames())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func metricNames() string {
	names := make([]string, 0, domain.MetricCount)
	for _, m := range domain.AllMetrics() {
		names = append(names, m.String())
	}
	return strings.Join(names, ", ")
}

func countryNames() string {
	names := make([]string, 0, len(domain.AllCountries))
	for _, c := range domain.AllCountries {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// Custom validators

func isMetric(fl validator.FieldLevel) bool {
	_, err := domain.ParseMetric(fl.Field().String())
	return err == nil
}

func isMetricList(fl validator.FieldLevel) bool {
	list := splitList([]string{fl.Field().String()})
	if len(list) == 0 {
		return false
	}
	_, err := domain.ParseMetrics(list)
	return err == nil
}

func isCountry(fl validator.FieldLevel) bool {
	_, err := domain.ParseCountry(fl.Field().String())
	return err == nil
}

func isCountryList(fl validator.FieldLevel) bool {
	list := splitList([]string{fl.Field().String()})
	if len(list) == 0 {
		return false
	}
	_, err := domain.ParseCountries(list)
	return err == nil
}

// ContentTypeValidator rejects request bodies that are not one of contentTypes
func ContentTypeValidator(errHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength == 0 || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			errHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				apierrors.CodeInvalidRequest,
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}
