package handlers

import (
	"net/http"
	"strconv"

	"github.com/SOTO729/Evaluaasiv3-sub005/config"
	"github.com/SOTO729/Evaluaasiv3-sub005/internal/provisioning"
	"github.com/SOTO729/Evaluaasiv3-sub005/models"
	"github.com/gin-gonic/gin"
)

// ExamHandler expone el catálogo de exámenes y el flujo de publicación.
type ExamHandler struct {
	Guard *provisioning.PublicationGuard
}

func NewExamHandler(guard *provisioning.PublicationGuard) *ExamHandler {
	return &ExamHandler{Guard: guard}
}

// AvailableExamsHandler lista los exámenes publicados que el asistente de
// asignación puede ofrecer, junto con sus valores por defecto.
func (h *ExamHandler) AvailableExamsHandler(c *gin.Context) {
	query := config.DB.Preload("StudyMaterials").Where("is_published = true")

	if ecm := c.Query("ecm_code"); ecm != "" {
		query = query.Where("ecm_code = ?", ecm)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("title ILIKE ?", "%"+search+"%")
	}

	var exams []models.Exam
	if err := query.Order("title asc").Find(&exams).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible leer el catálogo de exámenes"})
		return
	}

	c.JSON(http.StatusOK, exams)
}

// GetExamHandler regresa un examen con sus materiales de estudio.
func (h *ExamHandler) GetExamHandler(c *gin.Context) {
	examID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de examen inválido"})
		return
	}

	var exam models.Exam
	if err := config.DB.Preload("StudyMaterials").First(&exam, examID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Examen no encontrado"})
		return
	}

	c.JSON(http.StatusOK, exam)
}

// PublishExamHandler intenta publicar el examen. Un conflicto de código ECM
// no es un error del servidor: se reporta como 409 con el examen rival para
// que el operador decida.
func (h *ExamHandler) PublishExamHandler(c *gin.Context) {
	examID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de examen inválido"})
		return
	}

	result, err := h.Guard.Publish(c.Request.Context(), uint(examID))
	if err != nil {
		respondProvisioningError(c, err)
		return
	}

	if result.State == provisioning.StateConflicted {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ResolveConflictInput es el cuerpo de POST /exams/:id/resolve-conflict.
type ResolveConflictInput struct {
	Action string `json:"action" binding:"required"`
}

// ResolveConflictHandler aplica la decisión del operador sobre un conflicto
// de publicación: "replace" despublica al rival y publica éste, "keep" deja
// todo como estaba.
func (h *ExamHandler) ResolveConflictHandler(c *gin.Context) {
	examID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de examen inválido"})
		return
	}

	var input ResolveConflictInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Solicitud inválida: " + err.Error()})
		return
	}

	action := provisioning.ResolveAction(input.Action)
	if action != provisioning.ReplaceConflicting && action != provisioning.KeepExisting {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La acción debe ser 'replace' o 'keep'"})
		return
	}

	result, err := h.Guard.Resolve(c.Request.Context(), uint(examID), action)
	if err != nil {
		respondProvisioningError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UnpublishExamHandler retira un examen de publicación. No pasa por el
// candado del cupo: despublicar nunca viola el invariante de unicidad.
func (h *ExamHandler) UnpublishExamHandler(c *gin.Context) {
	examID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de examen inválido"})
		return
	}

	var exam models.Exam
	if err := config.DB.First(&exam, examID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Examen no encontrado"})
		return
	}

	if err := config.DB.Model(&exam).Update("is_published", false).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible despublicar el examen"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Examen despublicado"})
}
