package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/SOTO729/Evaluaasiv3-sub005/config"
	"github.com/SOTO729/Evaluaasiv3-sub005/models"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// DownloadBulkTemplateHandler genera la plantilla de carga masiva del grupo:
// una hoja con la membresía actual y otra con el catálogo de códigos ECM
// publicados, para que el operador llene la columna de código por candidato.
func DownloadBulkTemplateHandler(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de grupo inválido"})
		return
	}

	var group models.CandidateGroup
	if err := config.DB.First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Grupo no encontrado"})
		return
	}

	var members []models.GroupMember
	if err := config.DB.Preload("Candidate").
		Where("group_id = ?", groupID).
		Order("ordinal asc, id asc").
		Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible leer la membresía del grupo"})
		return
	}

	var exams []models.Exam
	if err := config.DB.Where("is_published = true AND ecm_code IS NOT NULL").
		Order("ecm_code asc").
		Find(&exams).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible leer el catálogo de exámenes"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	membersSheet := "Candidatos"
	index, _ := f.NewSheet(membersSheet)
	f.SetActiveSheet(index)

	headers := []string{"Nombre completo", "Correo", "CURP", "Código ECM"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(membersSheet, cell, header)
	}
	for i, m := range members {
		if m.Candidate == nil {
			continue
		}
		row := i + 2
		f.SetCellValue(membersSheet, fmt.Sprintf("A%d", row), m.Candidate.FullName())
		f.SetCellValue(membersSheet, fmt.Sprintf("B%d", row), m.Candidate.Email)
		f.SetCellValue(membersSheet, fmt.Sprintf("C%d", row), m.Candidate.CURP)
		// La columna D queda vacía: ahí va el código ECM que decida el operador.
	}

	catalogSheet := "Catálogo ECM"
	f.NewSheet(catalogSheet)
	f.SetCellValue(catalogSheet, "A1", "Código ECM")
	f.SetCellValue(catalogSheet, "B1", "Examen")
	for i, e := range exams {
		row := i + 2
		if e.ECMCode != nil {
			f.SetCellValue(catalogSheet, fmt.Sprintf("A%d", row), *e.ECMCode)
		}
		f.SetCellValue(catalogSheet, fmt.Sprintf("B%d", row), e.Title)
	}

	// La hoja por defecto de excelize sobra.
	f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("plantilla_grupo_%d_%s.xlsx", group.ID, time.Now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible generar la plantilla"})
	}
}

// ExportAssignmentsHandler exporta a Excel las asignaciones de un grupo,
// opcionalmente filtradas por folio de commit.
func ExportAssignmentsHandler(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de grupo inválido"})
		return
	}

	query := config.DB.Preload("Candidate").Preload("Exam").
		Where("source_group_id = ?", groupID).
		Order("assigned_at desc, id desc")
	if folio := c.Query("folio"); folio != "" {
		query = query.Where("folio = ?", folio)
	}

	var assignments []models.Assignment
	if err := query.Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible leer las asignaciones"})
		return
	}
	if len(assignments) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No hay asignaciones que exportar"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Asignaciones"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Candidato", "CURP", "Examen", "Código ECM", "Número", "Fecha de asignación", "Folio"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}
	for i, a := range assignments {
		row := i + 2
		if a.Candidate != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), a.Candidate.FullName())
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), a.Candidate.CURP)
		}
		if a.Exam != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), a.Exam.Title)
		}
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), a.ECMCode)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), a.AssignmentNumber)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), a.AssignedAt.Format("02/01/2006 15:04"))
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), a.Folio)
	}

	fileName := fmt.Sprintf("asignaciones_grupo_%d_%s.xlsx", groupID, time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible generar el archivo"})
	}
}
