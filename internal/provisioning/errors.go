package provisioning

import (
	"errors"
	"fmt"
)

// Errores del motor de asignación. Los manejadores HTTP los traducen a
// códigos de estado; la clasificación por fila de la carga masiva nunca
// llega aquí, esa vive en las particiones del BulkOutcome.
var (
	ErrInvalidConfig       = errors.New("configuración de asignación inválida")
	ErrEmptySelection      = errors.New("la selección de candidatos está vacía")
	ErrGroupNotFound       = errors.New("grupo no encontrado")
	ErrExamNotFound        = errors.New("examen no encontrado")
	ErrNoPriceRule         = errors.New("no existe regla de precio para el grupo")
	ErrInsufficientBalance = errors.New("saldo insuficiente")
	ErrPublicationConflict = errors.New("conflicto de publicación por código ECM")
	ErrConflictRetry       = errors.New("el código ECM está siendo publicado por otra operación, reintente")
)

// InsufficientBalanceError lleva el faltante exacto para mostrarlo al
// operador. Se desenvuelve a ErrInsufficientBalance.
type InsufficientBalanceError struct {
	Required  float64
	Available float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("saldo insuficiente: se requieren %.2f y el saldo actual es %.2f", e.Required, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall regresa cuánto saldo falta para completar la operación.
func (e *InsufficientBalanceError) Shortfall() float64 { return e.Required - e.Available }
