package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/SOTO729/Evaluaasiv3-sub005/internal/provisioning"
	"github.com/SOTO729/Evaluaasiv3-sub005/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ProvisioningHandler encapsula el motor de asignación y la caché de
// archivos de carga masiva.
type ProvisioningHandler struct {
	Orchestrator *provisioning.Orchestrator
	Ledger       *provisioning.Ledger
	Directory    provisioning.Directory
	BulkFiles    *store.BulkFileCache
}

func NewProvisioningHandler(orch *provisioning.Orchestrator, ledger *provisioning.Ledger, directory provisioning.Directory, bulkFiles *store.BulkFileCache) *ProvisioningHandler {
	return &ProvisioningHandler{
		Orchestrator: orch,
		Ledger:       ledger,
		Directory:    directory,
		BulkFiles:    bulkFiles,
	}
}

// ProvisionInput es el cuerpo de POST /provisioning/provision. Con
// targetingMode "bulk" debe venir bulkFileRef; en los demás modos, examId.
type ProvisionInput struct {
	GroupID       uint                   `json:"groupId" binding:"required"`
	ExamID        *uint                  `json:"examId"`
	BulkFileRef   string                 `json:"bulkFileRef"`
	Overrides     *provisioning.Overrides `json:"configOverrides"`
	TargetingMode string                 `json:"targetingMode" binding:"required"`
	MemberIDs     []uint                 `json:"memberIds"`
	DryRun        bool                   `json:"dryRun"`
}

// ProvisionHandler ejecuta la vista previa o el commit del asistente de
// asignación.
func (h *ProvisioningHandler) ProvisionHandler(c *gin.Context) {
	var input ProvisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Solicitud inválida: " + err.Error()})
		return
	}

	req := provisioning.Request{
		GroupID:    input.GroupID,
		ExamID:     input.ExamID,
		Mode:       provisioning.TargetMode(input.TargetingMode),
		MemberIDs:  input.MemberIDs,
		OperatorID: operatorID(c),
		DryRun:     input.DryRun,
	}
	if input.Overrides != nil {
		req.Overrides = *input.Overrides
	} else {
		req.Overrides = provisioning.DefaultOverrides()
	}

	if req.Mode == provisioning.TargetBulk {
		if input.BulkFileRef == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "El modo de carga masiva requiere bulkFileRef"})
			return
		}
		rows, err := h.BulkFiles.Get(c.Request.Context(), input.BulkFileRef)
		if err != nil {
			if errors.Is(err, store.ErrBulkFileNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "El archivo de carga masiva expiró, vuelva a cargarlo"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible recuperar el archivo: " + err.Error()})
			return
		}
		req.BulkRows = rows
	}

	result, err := h.Orchestrator.Provision(c.Request.Context(), req)
	if err != nil {
		respondProvisioningError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CostPreviewHandler calcula el costo de una operación sin tocar nada.
func (h *ProvisioningHandler) CostPreviewHandler(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Query("group_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_id inválido"})
		return
	}

	group, err := h.Directory.GetGroup(c.Request.Context(), uint(groupID))
	if err != nil {
		respondProvisioningError(c, err)
		return
	}
	members, err := h.Directory.GetGroupMembers(c.Request.Context(), uint(groupID))
	if err != nil {
		respondProvisioningError(c, err)
		return
	}

	mode := provisioning.TargetMode(c.DefaultQuery("targeting_mode", string(provisioning.TargetAll)))
	var units int
	switch mode {
	case provisioning.TargetSelected:
		memberIDs, err := parseMemberIDs(c.Query("member_ids"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "member_ids inválido"})
			return
		}
		ids, err := provisioning.ResolveTargets(members, mode, memberIDs)
		if err != nil {
			respondProvisioningError(c, err)
			return
		}
		units = len(ids)
	default:
		units = len(members)
	}

	preview, err := h.Ledger.Preview(c.Request.Context(), group, units)
	if err != nil {
		respondProvisioningError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// Columnas esperadas del archivo de carga masiva, en el orden de la
// plantilla descargable.
const (
	bulkColFullName = 0
	bulkColEmail    = 1
	bulkColCURP     = 2
	bulkColECMCode  = 3
)

// UploadBulkFileHandler recibe el archivo masivo en xlsx, lo parsea a filas
// y lo deja en caché bajo una referencia opaca. La clasificación de cada
// fila ocurre después, en la vista previa o el commit.
func (h *ProvisioningHandler) UploadBulkFileHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No se recibió el archivo"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fue posible abrir el archivo"})
		return
	}
	defer file.Close()

	workbook, err := excelize.OpenReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El archivo no es un xlsx válido"})
		return
	}
	defer workbook.Close()

	sheetName := workbook.GetSheetName(0)
	sheetRows, err := workbook.GetRows(sheetName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fue posible leer las filas del archivo"})
		return
	}

	var rows []provisioning.BulkRow
	for i, cells := range sheetRows {
		if i == 0 {
			continue // encabezado de la plantilla
		}
		row := provisioning.BulkRow{
			RowIndex: i,
			FullName: cellAt(cells, bulkColFullName),
			Email:    cellAt(cells, bulkColEmail),
			CURP:     cellAt(cells, bulkColCURP),
			ECMCode:  cellAt(cells, bulkColECMCode),
		}
		if row.FullName == "" && row.Email == "" && row.CURP == "" && row.ECMCode == "" {
			continue // fila vacía al final de la hoja
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El archivo no contiene filas de candidatos"})
		return
	}

	ref, err := h.BulkFiles.Put(c.Request.Context(), rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible guardar el archivo: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bulkFileRef": ref, "rowCount": len(rows)})
}

func cellAt(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func parseMemberIDs(raw string) ([]uint, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// operatorID lee el operador autenticado que dejó el middleware en el
// contexto.
func operatorID(c *gin.Context) uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// respondProvisioningError traduce los errores del motor al código HTTP y
// mensaje que le tocan.
func respondProvisioningError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, provisioning.ErrInvalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, provisioning.ErrEmptySelection):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Seleccione al menos un candidato"})
	case errors.Is(err, provisioning.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Grupo no encontrado"})
	case errors.Is(err, provisioning.ErrExamNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Examen no encontrado"})
	case errors.Is(err, provisioning.ErrNoPriceRule):
		c.JSON(http.StatusConflict, gin.H{"error": "El grupo no tiene esquema de precios configurado"})
	case errors.Is(err, provisioning.ErrInsufficientBalance):
		var insufficient *provisioning.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "Saldo insuficiente para completar la operación",
				"required":  insufficient.Required,
				"available": insufficient.Available,
				"shortfall": insufficient.Shortfall(),
			})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "Saldo insuficiente para completar la operación"})
	case errors.Is(err, provisioning.ErrPublicationConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Otro examen publicado ya ocupa ese código ECM"})
	case errors.Is(err, provisioning.ErrConflictRetry):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Operación en curso sobre el mismo código ECM, reintente"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Error interno: %v", err)})
	}
}
