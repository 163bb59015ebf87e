package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/amirphl/country-gdp-service/app/dto"
	businessflow "github.com/amirphl/country-gdp-service/business_flow"
	"github.com/amirphl/country-gdp-service/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// Content types of the binary responses
const (
	contentTypePNG  = "image/png"
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// CountryHandlerInterface defines the contract for the country mirror endpoints
type CountryHandlerInterface interface {
	Refresh(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Export(c fiber.Ctx) error
	Image(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Status(c fiber.Ctx) error
}

// CountryHandler serves the country mirror HTTP API
type CountryHandler struct {
	refreshFlow businessflow.RefreshFlow
	countryFlow businessflow.CountryFlow
	validator   *validator.Validate
}

// NewCountryHandler creates a new country handler
func NewCountryHandler(refreshFlow businessflow.RefreshFlow, countryFlow businessflow.CountryFlow) CountryHandlerInterface {
	return &CountryHandler{
		refreshFlow: refreshFlow,
		countryFlow: countryFlow,
		validator:   newValidator(),
	}
}

// Refresh pulls both upstream datasets and rebuilds the stored countries and the summary image
// @Summary Refresh Countries
// @Description Fetch countries and exchange rates, recompute estimated GDP and regenerate the summary image
// @Tags Countries
// @Produce json
// @Success 200 {object} dto.RefreshCountriesResponse
// @Failure 503 {object} dto.ErrorResponse "External data source unavailable"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /countries/refresh [post]
func (h *CountryHandler) Refresh(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/countries/refresh", utils.RefreshRequestTimeout)
	defer cancel()

	metadata := h.metadata(c)
	result, err := h.refreshFlow.Refresh(ctx, metadata)
	if err != nil {
		return h.handleError(c, "Refresh countries", err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

// List returns stored countries
// @Summary List Countries
// @Tags Countries
// @Produce json
// @Param region query string false "Region (case-insensitive)"
// @Param currency query string false "Currency code (case-insensitive)"
// @Param sort query string false "gdp_asc or gdp_desc"
// @Success 200 {array} dto.CountryDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /countries [get]
func (h *CountryHandler) List(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/countries", utils.DefaultRequestTimeout)
	defer cancel()

	rows, err := h.countryFlow.ListCountries(ctx, listRequest(c))
	if err != nil {
		return h.handleError(c, "List countries", err)
	}
	return c.Status(fiber.StatusOK).JSON(rows)
}

// Export downloads stored countries as a CSV or XLSX file
// @Summary Export Countries
// @Tags Countries
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv (default) or xlsx"
// @Param region query string false "Region (case-insensitive)"
// @Param currency query string false "Currency code (case-insensitive)"
// @Param sort query string false "gdp_asc or gdp_desc"
// @Success 200 {file} file "Export file"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /countries/export [get]
func (h *CountryHandler) Export(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/countries/export", utils.DefaultRequestTimeout)
	defer cancel()

	req := dto.ExportCountriesRequest{
		ListCountriesRequest: listRequest(c),
		Format:               c.Query("format"),
	}
	filename, data, err := h.countryFlow.ExportCountries(ctx, req)
	if err != nil {
		return h.handleError(c, "Export countries", err)
	}

	if strings.HasSuffix(filename, "."+dto.ExportFormatXLSX) {
		c.Set(fiber.HeaderContentType, contentTypeXLSX)
	} else {
		c.Set(fiber.HeaderContentType, contentTypeCSV)
	}
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Send(data)
}

// Image serves the summary image produced by the last successful refresh
// @Summary Summary Image
// @Tags Countries
// @Produce png
// @Success 200 {file} file "PNG image"
// @Failure 404 {object} dto.ErrorResponse "Summary image not found"
// @Router /countries/image [get]
func (h *CountryHandler) Image(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/countries/image", utils.DefaultRequestTimeout)
	defer cancel()

	data, err := h.countryFlow.SummaryImage(ctx)
	if err != nil {
		return h.handleError(c, "Read summary image", err)
	}
	c.Set(fiber.HeaderContentType, contentTypePNG)
	return c.Send(data)
}

// Get returns one country by name
// @Summary Get Country
// @Tags Countries
// @Produce json
// @Param name path string true "Country name (case-insensitive)"
// @Success 200 {object} dto.CountryDTO
// @Failure 404 {object} dto.ErrorResponse "Country not found"
// @Router /countries/{name} [get]
func (h *CountryHandler) Get(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/countries/:name", utils.DefaultRequestTimeout)
	defer cancel()

	country, err := h.countryFlow.GetCountry(ctx, c.Params("name"))
	if err != nil {
		return h.handleError(c, "Get country", err)
	}
	return c.Status(fiber.StatusOK).JSON(country)
}

// Create stores a country outside of a refresh
// @Summary Create Country
// @Tags Countries
// @Accept json
// @Produce json
// @Param request body dto.CreateCountryRequest true "Country"
// @Success 201 {object} dto.CountryDTO
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Router /countries [post]
func (h *CountryHandler) Create(c fiber.Ctx) error {
	var req dto.CreateCountryRequest
	if details := bindJSON(c, &req); details != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, msgValidationFailed, details)
	}
	if err := h.validator.Struct(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, msgValidationFailed, validationDetails(err))
	}

	ctx, cancel := createRequestContextWithTimeout(c, "/countries", utils.DefaultRequestTimeout)
	defer cancel()

	country, err := h.countryFlow.CreateCountry(ctx, &req, h.metadata(c))
	if err != nil {
		return h.handleError(c, "Create country", err)
	}
	return c.Status(fiber.StatusCreated).JSON(country)
}

// Update replaces the provided fields of a country
// @Summary Update Country
// @Tags Countries
// @Accept json
// @Produce json
// @Param name path string true "Country name (case-insensitive)"
// @Param request body dto.UpdateCountryRequest true "Fields to replace"
// @Success 200 {object} dto.CountryDTO
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 404 {object} dto.ErrorResponse "Country not found"
// @Router /countries/{name} [put]
func (h *CountryHandler) Update(c fiber.Ctx) error {
	var req dto.UpdateCountryRequest
	if details := bindJSON(c, &req); details != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, msgValidationFailed, details)
	}
	if err := h.validator.Struct(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, msgValidationFailed, validationDetails(err))
	}

	ctx, cancel := createRequestContextWithTimeout(c, "/countries/:name", utils.DefaultRequestTimeout)
	defer cancel()

	country, err := h.countryFlow.UpdateCountry(ctx, c.Params("name"), &req, h.metadata(c))
	if err != nil {
		return h.handleError(c, "Update country", err)
	}
	return c.Status(fiber.StatusOK).JSON(country)
}

// Delete removes a country by name
// @Summary Delete Country
// @Tags Countries
// @Param name path string true "Country name (case-insensitive)"
// @Success 204 "Deleted"
// @Failure 404 {object} dto.ErrorResponse "Country not found"
// @Router /countries/{name} [delete]
func (h *CountryHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/countries/:name", utils.DefaultRequestTimeout)
	defer cancel()

	if err := h.countryFlow.DeleteCountry(ctx, c.Params("name"), h.metadata(c)); err != nil {
		return h.handleError(c, "Delete country", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Status reports the stored country count and the last refresh time
// @Summary Status
// @Tags Countries
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Router /status [get]
func (h *CountryHandler) Status(c fiber.Ctx) error {
	ctx, cancel := createRequestContextWithTimeout(c, "/status", utils.DefaultRequestTimeout)
	defer cancel()

	status, err := h.countryFlow.Status(ctx)
	if err != nil {
		return h.handleError(c, "Status", err)
	}
	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *CountryHandler) metadata(c fiber.Ctx) *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
}

// handleError maps business errors onto the public error bodies
func (h *CountryHandler) handleError(c fiber.Ctx, operation string, err error) error {
	if ve, ok := businessflow.AsValidationError(err); ok {
		return ErrorResponse(c, fiber.StatusBadRequest, msgValidationFailed, ve.Fields)
	}
	if businessflow.IsCountriesSourceUnavailable(err) {
		return ErrorResponse(c, fiber.StatusServiceUnavailable, msgSourceUnavailable, "Could not fetch data from Countries API")
	}
	if businessflow.IsRatesSourceUnavailable(err) {
		return ErrorResponse(c, fiber.StatusServiceUnavailable, msgSourceUnavailable, "Could not fetch data from Exchange Rates API")
	}
	if businessflow.IsCountryNotFound(err) {
		return ErrorResponse(c, fiber.StatusNotFound, msgCountryNotFound, nil)
	}
	if businessflow.IsSummaryImageNotFound(err) {
		return ErrorResponse(c, fiber.StatusNotFound, msgImageNotFound, nil)
	}

	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		log.Printf("%s failed [%s] request_id=%s: %v", operation, be.Code, requestID(c), err)
	} else {
		log.Printf("%s failed request_id=%s: %v", operation, requestID(c), err)
	}
	return ErrorResponse(c, fiber.StatusInternalServerError, msgInternalError, nil)
}

func listRequest(c fiber.Ctx) dto.ListCountriesRequest {
	req := dto.ListCountriesRequest{Sort: c.Query("sort")}
	if region := c.Query("region"); region != "" {
		req.Region = &region
	}
	if currency := c.Query("currency"); currency != "" {
		req.Currency = &currency
	}
	return req
}
