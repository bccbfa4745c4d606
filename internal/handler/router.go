package handler

import "github.com/gin-gonic/gin"

// Handlers groups the resource handlers mounted under the API prefix.
type Handlers struct {
	People      *PersonHandler
	Courses     *CourseHandler
	Enrollments *EnrollmentHandler
}

// RegisterRoutes mounts every resource route on rg. Reads are open; writes
// pass through guards first.
func RegisterRoutes(rg *gin.RouterGroup, h Handlers, guards ...gin.HandlerFunc) {
	write := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		chain := make([]gin.HandlerFunc, 0, len(guards)+1)
		chain = append(chain, guards...)
		return append(chain, handler)
	}

	if h.People != nil {
		people := rg.Group("/people")
		people.GET("", h.People.List)
		people.GET("/cpf/:cpf", h.People.GetByNationalID)
		people.GET("/:id", h.People.Get)
		people.POST("", write(h.People.Create)...)
		people.PUT("/:id", write(h.People.Update)...)
		people.DELETE("/:id", write(h.People.Delete)...)
	}

	if h.Courses != nil {
		courses := rg.Group("/courses")
		courses.GET("", h.Courses.List)
		courses.GET("/active", h.Courses.ListActive)
		courses.GET("/inactive", h.Courses.ListInactive)
		courses.GET("/:id", h.Courses.Get)
		courses.POST("", write(h.Courses.Create)...)
		courses.PUT("/:id", write(h.Courses.Update)...)
		courses.PATCH("/:id/status", write(h.Courses.SetStatus)...)
		courses.DELETE("/:id", write(h.Courses.Delete)...)
	}

	if h.Enrollments != nil {
		enrollments := rg.Group("/enrollments")
		enrollments.GET("", h.Enrollments.List)
		enrollments.GET("/aluno/:alunoId", h.Enrollments.ListByPerson)
		enrollments.GET("/aluno/:alunoId/statement", h.Enrollments.Statement)
		enrollments.GET("/:id", h.Enrollments.Get)
		enrollments.POST("", write(h.Enrollments.Enroll)...)
		enrollments.PATCH("/:id/status-pagamento", write(h.Enrollments.UpdatePaymentStatus)...)
		enrollments.DELETE("/:id", write(h.Enrollments.Cancel)...)
	}
}
