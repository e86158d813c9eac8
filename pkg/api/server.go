package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers
type ServerInterface interface {
	// (GET /health)
	GetHealth(c *gin.Context)
	// (GET /openapi.yaml)
	GetOpenAPISpec(c *gin.Context)

	// (POST /api/v1/session/login)
	Login(c *gin.Context)
	// (POST /api/v1/session/logout)
	Logout(c *gin.Context)
	// (GET /api/v1/session)
	GetSession(c *gin.Context)

	// (GET /api/v1/patients)
	ListPatients(c *gin.Context, params ListPatientsParams)
	// (POST /api/v1/patients)
	CreatePatient(c *gin.Context)
	// (GET /api/v1/patients/{id})
	GetPatient(c *gin.Context, id string)
	// (PUT /api/v1/patients/{id})
	UpdatePatient(c *gin.Context, id string)
	// (POST /api/v1/patients/{id}/conditions)
	AddConditions(c *gin.Context, id string)
	// (DELETE /api/v1/patients/{id}/conditions/{index})
	RemoveCondition(c *gin.Context, id string, index int)
	// (POST /api/v1/patients/{id}/vitals)
	LogVitals(c *gin.Context, id string)
	// (POST /api/v1/patients/{id}/messages)
	SendMessage(c *gin.Context, id string)
	// (POST /api/v1/patients/{id}/messages/read)
	MarkMessagesRead(c *gin.Context, id string)
	// (GET /api/v1/patients/{id}/report)
	DownloadPatientReport(c *gin.Context, id string)

	// (GET /api/v1/appointments)
	ListAppointments(c *gin.Context)
	// (POST /api/v1/appointments)
	BookAppointment(c *gin.Context)
	// (GET /api/v1/appointments/slots)
	GetAppointmentSlots(c *gin.Context, params GetAppointmentSlotsParams)
	// (POST /api/v1/appointments/{id}/cancel)
	CancelAppointment(c *gin.Context, id string)

	// (POST /api/v1/feedback)
	SubmitFeedback(c *gin.Context)
	// (GET /api/v1/admin/stats)
	GetAdminStats(c *gin.Context)

	// (GET /api/v1/chat)
	GetChat(c *gin.Context)
	// (DELETE /api/v1/chat)
	ClearChat(c *gin.Context)
	// (POST /api/v1/chat/messages)
	SendChatMessage(c *gin.Context)
	// (POST /api/v1/chat/messages/{id}/feedback)
	SetChatFeedback(c *gin.Context, id string)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandler       func(*gin.Context, error, int)
}

type MiddlewareFunc func(c *gin.Context)

// runMiddlewares reports whether the request should continue to the handler
func (siw *ServerInterfaceWrapper) runMiddlewares(c *gin.Context) bool {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return false
		}
	}
	return true
}

func (siw *ServerInterfaceWrapper) pathID(c *gin.Context) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter id: %w", err), http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.GetHealth(c)
	}
}

// GetOpenAPISpec operation middleware
func (siw *ServerInterfaceWrapper) GetOpenAPISpec(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.GetOpenAPISpec(c)
	}
}

// Login operation middleware
func (siw *ServerInterfaceWrapper) Login(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.Login(c)
	}
}

// Logout operation middleware
func (siw *ServerInterfaceWrapper) Logout(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.Logout(c)
	}
}

// GetSession operation middleware
func (siw *ServerInterfaceWrapper) GetSession(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.GetSession(c)
	}
}

// ListPatients operation middleware
func (siw *ServerInterfaceWrapper) ListPatients(c *gin.Context) {
	var params ListPatientsParams

	err := runtime.BindQueryParameter("form", true, false, "q", c.Request.URL.Query(), &params.Q)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter q: %w", err), http.StatusBadRequest)
		return
	}

	if siw.runMiddlewares(c) {
		siw.Handler.ListPatients(c, params)
	}
}

// CreatePatient operation middleware
func (siw *ServerInterfaceWrapper) CreatePatient(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.CreatePatient(c)
	}
}

// GetPatient operation middleware
func (siw *ServerInterfaceWrapper) GetPatient(c *gin.Context) {
	id, ok := siw.pathID(c)
	if ok && siw.runMiddlewares(c) {
		siw.Handler.GetPatient(c, id)
	}
}

// UpdatePatient operation middleware
func (siw *ServerInterfaceWrapper) UpdatePatient(c *gin.Context) {
	id, ok := siw.pathID(c)
	if ok && siw.runMiddlewares(c) {
		siw.Handler.UpdatePatient(c, id)
	}
}

// AddConditions operation middleware
func (siw *ServerInterfaceWrapper) AddConditions(c *gin.Context) {
	id, ok := siw.pathID(c)
	if ok && siw.runMiddlewares(c) {
		siw.Handler.AddConditions(c, id)
	}
}

// RemoveCondition operation middleware
func (siw *ServerInterfaceWrapper) RemoveCondition(c *gin.Context) {
	id, ok := siw.pathID(c)
	if !ok {
		return
	}

	var index int
	err := runtime.BindStyledParameterWithOptions("simple", "index", c.Param("index"), &index,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter index: %w", err), http.StatusBadRequest)
		return
	}

	if siw.runMiddlewares(c) {
		siw.Handler.RemoveCondition(c, id, index)
	}
}

// LogVitals operation middleware
func (siw *ServerInterfaceWrapper) LogVitals(c *gin.Context) {
	id, ok := siw.pathID(c)
	if ok && siw.runMiddlewares(c) {
		siw.Handler.LogVitals(c, id)
	}
}

// SendMessage operation middleware
func (siw *ServerInterfaceWrapper) SendMessage(c *gin.Context) {
	id, ok := siw.pathID(c)
	if ok && siw.runMiddlewares(c) {
		siw.Handler.SendMessage(c, id)
	}
}

// MarkMessagesRead operation middleware
func (siw *ServerInterfaceWrapper) MarkMessagesRead(c *gin.Context) {
	id, ok := siw.pathID(c)
	if ok && siw.runMiddlewares(c) {
		siw.Handler.MarkMessagesRead(c, id)
	}
}

// DownloadPatientReport operation middleware
func (siw *ServerInterfaceWrapper) DownloadPatientReport(c *gin.Context) {
	id, ok := siw.pathID(c)
	if ok && siw.runMiddlewares(c) {
		siw.Handler.DownloadPatientReport(c, id)
	}
}

// ListAppointments operation middleware
func (siw *ServerInterfaceWrapper) ListAppointments(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.ListAppointments(c)
	}
}

// BookAppointment operation middleware
func (siw *ServerInterfaceWrapper) BookAppointment(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.BookAppointment(c)
	}
}

// GetAppointmentSlots operation middleware
func (siw *ServerInterfaceWrapper) GetAppointmentSlots(c *gin.Context) {
	var params GetAppointmentSlotsParams

	err := runtime.BindQueryParameter("form", true, false, "date", c.Request.URL.Query(), &params.Date)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter date: %w", err), http.StatusBadRequest)
		return
	}

	if siw.runMiddlewares(c) {
		siw.Handler.GetAppointmentSlots(c, params)
	}
}

// CancelAppointment operation middleware
func (siw *ServerInterfaceWrapper) CancelAppointment(c *gin.Context) {
	id, ok := siw.pathID(c)
	if ok && siw.runMiddlewares(c) {
		siw.Handler.CancelAppointment(c, id)
	}
}

// SubmitFeedback operation middleware
func (siw *ServerInterfaceWrapper) SubmitFeedback(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.SubmitFeedback(c)
	}
}

// GetAdminStats operation middleware
func (siw *ServerInterfaceWrapper) GetAdminStats(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.GetAdminStats(c)
	}
}

// GetChat operation middleware
func (siw *ServerInterfaceWrapper) GetChat(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.GetChat(c)
	}
}

// ClearChat operation middleware
func (siw *ServerInterfaceWrapper) ClearChat(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.ClearChat(c)
	}
}

// SendChatMessage operation middleware
func (siw *ServerInterfaceWrapper) SendChatMessage(c *gin.Context) {
	if siw.runMiddlewares(c) {
		siw.Handler.SendChatMessage(c)
	}
}

// SetChatFeedback operation middleware
func (siw *ServerInterfaceWrapper) SetChatFeedback(c *gin.Context) {
	id, ok := siw.pathID(c)
	if ok && siw.runMiddlewares(c) {
		siw.Handler.SetChatFeedback(c, id)
	}
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	Middlewares  []MiddlewareFunc
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			details := err.Error()
			c.JSON(statusCode, ErrorResponse{
				Code:    CodeValidation,
				Message: "Invalid request parameters",
				Details: &details,
			})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandler:       errorHandler,
	}

	base := options.BaseURL

	router.GET(base+"/health", wrapper.GetHealth)
	router.GET(base+"/openapi.yaml", wrapper.GetOpenAPISpec)

	router.POST(base+"/api/v1/session/login", wrapper.Login)
	router.POST(base+"/api/v1/session/logout", wrapper.Logout)
	router.GET(base+"/api/v1/session", wrapper.GetSession)

	router.GET(base+"/api/v1/patients", wrapper.ListPatients)
	router.POST(base+"/api/v1/patients", wrapper.CreatePatient)
	router.GET(base+"/api/v1/patients/:id", wrapper.GetPatient)
	router.PUT(base+"/api/v1/patients/:id", wrapper.UpdatePatient)
	router.POST(base+"/api/v1/patients/:id/conditions", wrapper.AddConditions)
	router.DELETE(base+"/api/v1/patients/:id/conditions/:index", wrapper.RemoveCondition)
	router.POST(base+"/api/v1/patients/:id/vitals", wrapper.LogVitals)
	router.POST(base+"/api/v1/patients/:id/messages", wrapper.SendMessage)
	router.POST(base+"/api/v1/patients/:id/messages/read", wrapper.MarkMessagesRead)
	router.GET(base+"/api/v1/patients/:id/report", wrapper.DownloadPatientReport)

	router.GET(base+"/api/v1/appointments", wrapper.ListAppointments)
	router.POST(base+"/api/v1/appointments", wrapper.BookAppointment)
	router.GET(base+"/api/v1/appointments/slots", wrapper.GetAppointmentSlots)
	router.POST(base+"/api/v1/appointments/:id/cancel", wrapper.CancelAppointment)

	router.POST(base+"/api/v1/feedback", wrapper.SubmitFeedback)
	router.GET(base+"/api/v1/admin/stats", wrapper.GetAdminStats)

	router.GET(base+"/api/v1/chat", wrapper.GetChat)
	router.DELETE(base+"/api/v1/chat", wrapper.ClearChat)
	router.POST(base+"/api/v1/chat/messages", wrapper.SendChatMessage)
	router.POST(base+"/api/v1/chat/messages/:id/feedback", wrapper.SetChatFeedback)
}
