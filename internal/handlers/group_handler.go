package handlers

import (
	"net/http"
	"strconv"

	"github.com/SOTO729/Evaluaasiv3-sub005/config"
	"github.com/SOTO729/Evaluaasiv3-sub005/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListGroupsHandler regresa los grupos de candidatos paginados, con filtro
// opcional por campus y por nombre.
func ListGroupsHandler(c *gin.Context) {
	query := config.DB.Model(&models.CandidateGroup{}).Preload("Campus")

	if campusID := c.Query("campus_id"); campusID != "" {
		query = query.Where("campus_id = ?", campusID)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible contar los grupos"})
		return
	}

	var groups []models.CandidateGroup
	if err := query.Scopes(Paginate(c)).Order("name asc").Find(&groups).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible leer los grupos"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, groups, totalRows))
}

// GetGroupHandler regresa un grupo con su campus.
func GetGroupHandler(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de grupo inválido"})
		return
	}

	var group models.CandidateGroup
	if err := config.DB.Preload("Campus").First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Grupo no encontrado"})
		return
	}

	c.JSON(http.StatusOK, group)
}

// ListGroupMembersHandler regresa la membresía completa del grupo en su
// orden de alta. El asistente de asignación la usa para el modo "selected".
func ListGroupMembersHandler(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de grupo inválido"})
		return
	}

	var members []models.GroupMember
	if err := config.DB.Preload("Candidate").
		Where("group_id = ?", groupID).
		Order("ordinal asc, id asc").
		Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible leer la membresía"})
		return
	}

	c.JSON(http.StatusOK, members)
}

// GetGroupBalanceHandler regresa el saldo del grupo y sus movimientos
// recientes del diario.
func GetGroupBalanceHandler(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de grupo inválido"})
		return
	}

	var balance models.GroupBalance
	if err := config.DB.Where("group_id = ?", groupID).First(&balance).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// Un grupo sin saldo inicializado simplemente tiene cero.
			balance = models.GroupBalance{GroupID: uint(groupID), Balance: 0}
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible leer el saldo"})
			return
		}
	}

	var transactions []models.BalanceTransaction
	if err := config.DB.Where("group_id = ?", groupID).
		Order("created_at desc, id desc").
		Limit(50).
		Find(&transactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible leer los movimientos"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groupId":      balance.GroupID,
		"balance":      balance.Balance,
		"transactions": transactions,
	})
}

// TopUpInput es el cuerpo de POST /groups/:id/balance/top-up.
type TopUpInput struct {
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Concept string  `json:"concept"`
}

// TopUpBalanceHandler abona saldo al grupo. El abono y su entrada en el
// diario se crean en la misma transacción.
func TopUpBalanceHandler(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de grupo inválido"})
		return
	}

	var input TopUpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Solicitud inválida: " + err.Error()})
		return
	}

	var group models.CandidateGroup
	if err := config.DB.First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Grupo no encontrado"})
		return
	}

	concept := input.Concept
	if concept == "" {
		concept = "Abono de saldo"
	}
	folio := uuid.NewString()

	var newBalance float64
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var balance models.GroupBalance
		result := tx.Where("group_id = ?", groupID).First(&balance)
		if result.Error == gorm.ErrRecordNotFound {
			balance = models.GroupBalance{GroupID: uint(groupID), Balance: 0}
			if err := tx.Create(&balance).Error; err != nil {
				return err
			}
		} else if result.Error != nil {
			return result.Error
		}

		balance.Balance += input.Amount
		if err := tx.Model(&balance).Update("balance", balance.Balance).Error; err != nil {
			return err
		}

		entry := models.BalanceTransaction{
			GroupID: uint(groupID),
			Amount:  input.Amount,
			Concept: concept,
			Folio:   folio,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		newBalance = balance.Balance
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible aplicar el abono: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groupId":    groupID,
		"newBalance": newBalance,
		"folio":      folio,
	})
}

// ListGroupAssignmentsHandler regresa las asignaciones originadas en el
// grupo, paginadas y filtrables por folio de commit.
func ListGroupAssignmentsHandler(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de grupo inválido"})
		return
	}

	query := config.DB.Model(&models.Assignment{}).
		Preload("Candidate").Preload("Exam").
		Where("source_group_id = ?", groupID)
	if folio := c.Query("folio"); folio != "" {
		query = query.Where("folio = ?", folio)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible contar las asignaciones"})
		return
	}

	var assignments []models.Assignment
	if err := query.Scopes(Paginate(c)).
		Order("assigned_at desc, id desc").
		Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible leer las asignaciones"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, assignments, totalRows))
}
