package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SOTO729/Evaluaasiv3-sub005/config"
	"github.com/SOTO729/Evaluaasiv3-sub005/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// LoginInput es el cuerpo de POST /auth/login.
type LoginInput struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Vigencia del token de sesión de los operadores.
const sessionTTL = 12 * time.Hour

// LoginHandler valida las credenciales del operador y deja el token de
// sesión en una cookie httpOnly. También lo regresa en el cuerpo para
// clientes que prefieren el encabezado Authorization.
func LoginHandler(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Solicitud inválida: " + err.Error()})
		return
	}

	var user models.User
	if err := config.DB.Preload("Roles").Where("login = ?", input.Login).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales incorrectas"})
		return
	}

	if user.Status != "active" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "La cuenta está deshabilitada"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales incorrectas"})
		return
	}

	expiresAt := time.Now().Add(sessionTTL)
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"login":   user.Login,
		"exp":     expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(config.JwtKey)
	if err != nil {
		slog.Error("No fue posible firmar el token de sesión", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No fue posible iniciar sesión"})
		return
	}

	c.SetCookie("auth_token", tokenStr, int(sessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"token":     tokenStr,
		"expiresAt": expiresAt,
		"user": gin.H{
			"id":       user.ID,
			"login":    user.Login,
			"fullName": user.FullName,
		},
	})
}

// LogoutHandler invalida la cookie de sesión y borra el caché del operador.
func LogoutHandler(c *gin.Context) {
	if userID, ok := c.Get("user_id"); ok && config.RDB != nil {
		cacheKey := fmt.Sprintf("user:%v:data", userID)
		if err := config.RDB.Del(config.Ctx, cacheKey).Err(); err != nil {
			slog.Warn("No fue posible borrar el caché del operador", "error", err)
		}
	}

	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada"})
}

// MeHandler regresa los datos del operador autenticado tal como los dejó el
// middleware en el contexto.
func MeHandler(c *gin.Context) {
	userID, _ := c.Get("user_id")
	login, _ := c.Get("login")
	roles, _ := c.Get("roles")

	c.JSON(http.StatusOK, gin.H{
		"id":    userID,
		"login": login,
		"roles": roles,
	})
}
