package config

import (
	"log/slog"
	"os"
)

// JwtKey es la llave de firma para los tokens de sesión de los operadores.
var JwtKey []byte

func LoadAuthConfig() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("Error crítico: la variable de entorno JWT_SECRET no está definida.")
		os.Exit(1)
	}
	JwtKey = []byte(secret)
}
