package listeners

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse representa la estructura estándar de errores
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	Timestamp string      `json:"timestamp"`
	Path      string      `json:"path"`
	Method    string      `json:"method"`
	Message   string      `json:"message,omitempty"`
	Data      string      `json:"data,omitempty"`
}

// ErrorDetail contiene los detalles del error
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Hint    string      `json:"hint,omitempty"`
}

// SuccessResponse representa la estructura estándar de respuestas exitosas
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Códigos de error estandarizados
const (
	// Client Errors (4xx)
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeUnprocessableEntity = "UNPROCESSABLE_ENTITY"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"

	// Server Errors (5xx)
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
	ErrCodeNotImplemented = "NOT_IMPLEMENTED"
	ErrCodeServiceUnavail = "SERVICE_UNAVAILABLE"
	ErrCodeGatewayTimeout = "GATEWAY_TIMEOUT"

	// Business Logic Errors
	ErrCodeProgramaNotFound    = "PROGRAMA_NOT_FOUND"
	ErrCodeOrdenNotFound       = "ORDEN_NOT_FOUND"
	ErrCodeTareaNotFound       = "TAREA_NOT_FOUND"
	ErrCodeDiaYaCerrado        = "DIA_YA_CERRADO"
	ErrCodeHistorialDuplicado  = "HISTORIAL_DUPLICADO"
	ErrCodeTareaBloqueada      = "TAREA_BLOQUEADA"
	ErrCodeEstandarInvalido    = "ESTANDAR_INVALIDO"
	ErrCodeProgresoInvalido    = "PROGRESO_INVALIDO"
	ErrCodeOrdenNoPlanificable = "ORDEN_NO_PLANIFICABLE"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
	ErrCodeValidationError     = "VALIDATION_ERROR"
)

// RespondWithError envía una respuesta de error estandarizada
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}, hint string) {
	c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message: message,
			Code:    errorCode,
			Details: details,
			Hint:    hint,
		},
		Data:      errorCode,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	})
}

// RespondWithSuccess envía una respuesta exitosa estandarizada
func RespondWithSuccess(c *gin.Context, statusCode int, data interface{}, message string) {
	c.JSON(statusCode, SuccessResponse{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Funciones helper para errores comunes

// BadRequest - Error 400
func BadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, ErrCodeBadRequest, message, details,
		"Verifica que los parámetros de la solicitud sean correctos")
}

// NotFound - Error 404
func NotFound(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusNotFound, ErrCodeNotFound, message, details,
		"Verifica que el recurso existe o que el ID sea correcto")
}

// UnprocessableEntity - Error 422
func UnprocessableEntity(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusUnprocessableEntity, ErrCodeUnprocessableEntity, message, details,
		"La solicitud está bien formada pero contiene errores semánticos")
}

// InternalServerError - Error 500
func InternalServerError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, ErrCodeInternalServer, message, details,
		"Contacta al equipo de desarrollo si el error persiste")
}

// ProgramaNotFound - Error de negocio: programa no encontrado
func ProgramaNotFound(c *gin.Context, programaID int) {
	RespondWithError(c, http.StatusNotFound, ErrCodeProgramaNotFound,
		"Programa no encontrado",
		gin.H{
			"programa_id": programaID,
			"reason":      "El programa especificado no está registrado en el sistema",
		},
		"Verifica que el programa_id sea correcto. Usa GET /programas para listar los programas disponibles")
}

// TareaNotFound - Error de negocio: tarea fragmentada no encontrada
func TareaNotFound(c *gin.Context, tareaID int) {
	RespondWithError(c, http.StatusNotFound, ErrCodeTareaNotFound,
		"Tarea no encontrada",
		gin.H{
			"tarea_id": tareaID,
			"reason":   "La tarea especificada no existe en el programa",
		},
		"Usa GET /programas/:id/tareas para ver las tareas del programa")
}

// DiaYaCerrado - Error de negocio: el día ya tiene un cierre registrado
func DiaYaCerrado(c *gin.Context, programaID int, fecha string) {
	RespondWithError(c, http.StatusConflict, ErrCodeDiaYaCerrado,
		"El día ya fue cerrado para este programa",
		gin.H{
			"programa_id": programaID,
			"fecha":       fecha,
			"reason":      "Ya existe un reporte cerrado o un reajuste diario para la fecha indicada",
		},
		"Consulta GET /programas/:id/historiales para revisar el cierre registrado")
}

// TareaBloqueada - Error de negocio: otro usuario tiene el bloqueo de edición
func TareaBloqueada(c *gin.Context, tareaID int, usuario string) {
	RespondWithError(c, http.StatusConflict, ErrCodeTareaBloqueada,
		"La tarea está bloqueada por otro usuario",
		gin.H{
			"tarea_id": tareaID,
			"usuario":  usuario,
			"reason":   "Existe un bloqueo de edición vigente sobre la tarea",
		},
		"Espera a que expire el bloqueo o pide al usuario que lo libere")
}

// ValidationError - Error de validación genérico
func ValidationError(c *gin.Context, field string, message string) {
	RespondWithError(c, http.StatusBadRequest, ErrCodeValidationError,
		"Error de validación",
		gin.H{
			"field":  field,
			"reason": message,
		},
		"Verifica que todos los campos requeridos estén presentes y sean del tipo correcto")
}

// DatabaseError - Error de base de datos
func DatabaseError(c *gin.Context, operation string, err error) {
	RespondWithError(c, http.StatusInternalServerError, ErrCodeDatabaseError,
		"Error de base de datos",
		gin.H{
			"operation": operation,
			"error":     err.Error(),
		},
		"Verifica la conectividad con la base de datos. Contacta al administrador si el error persiste")
}

// Success - Respuesta exitosa genérica
func Success(c *gin.Context, data interface{}, message string) {
	RespondWithSuccess(c, http.StatusOK, data, message)
}

// Created - Recurso creado exitosamente (201)
func Created(c *gin.Context, data interface{}, message string) {
	RespondWithSuccess(c, http.StatusCreated, data, message)
}

// NoContent - Operación exitosa sin contenido (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
