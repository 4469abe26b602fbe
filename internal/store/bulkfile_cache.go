package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SOTO729/Evaluaasiv3-sub005/internal/provisioning"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBulkFileNotFound significa que la referencia expiró o nunca existió.
var ErrBulkFileNotFound = errors.New("el archivo de carga masiva no existe o su referencia expiró")

// bulkFileTTL es la vida de un archivo cargado: suficiente para terminar el
// asistente, corta para no acumular basura.
const bulkFileTTL = time.Hour

// BulkFileCache guarda las filas ya parseadas de un archivo de carga masiva
// bajo una referencia opaca. Solo las filas crudas se cachean: el commit
// siempre re-clasifica contra datos vivos, nunca contra un resultado de
// vista previa.
type BulkFileCache struct {
	rdb *redis.Client

	mu    sync.Mutex
	local map[string]localBulkFile
}

type localBulkFile struct {
	rows      []provisioning.BulkRow
	expiresAt time.Time
}

// NewBulkFileCache usa Redis cuando hay cliente y cae a un mapa en memoria
// cuando no (despliegues de un solo nodo y pruebas).
func NewBulkFileCache(rdb *redis.Client) *BulkFileCache {
	return &BulkFileCache{rdb: rdb, local: make(map[string]localBulkFile)}
}

// Put guarda las filas y regresa la referencia para la solicitud de
// aprovisionamiento.
func (c *BulkFileCache) Put(ctx context.Context, rows []provisioning.BulkRow) (string, error) {
	ref := uuid.NewString()

	if c.rdb != nil {
		payload, err := json.Marshal(rows)
		if err != nil {
			return "", fmt.Errorf("no fue posible serializar las filas: %w", err)
		}
		if err := c.rdb.Set(ctx, bulkFileKey(ref), payload, bulkFileTTL).Err(); err != nil {
			return "", fmt.Errorf("no fue posible guardar el archivo en caché: %w", err)
		}
		return ref, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[ref] = localBulkFile{rows: rows, expiresAt: time.Now().Add(bulkFileTTL)}
	return ref, nil
}

// Get recupera las filas de una referencia previa.
func (c *BulkFileCache) Get(ctx context.Context, ref string) ([]provisioning.BulkRow, error) {
	if c.rdb != nil {
		payload, err := c.rdb.Get(ctx, bulkFileKey(ref)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrBulkFileNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("no fue posible leer el archivo de caché: %w", err)
		}
		var rows []provisioning.BulkRow
		if err := json.Unmarshal(payload, &rows); err != nil {
			return nil, fmt.Errorf("el archivo en caché está corrupto: %w", err)
		}
		return rows, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.local[ref]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.local, ref)
		return nil, ErrBulkFileNotFound
	}
	return entry.rows, nil
}

func bulkFileKey(ref string) string {
	return "bulk_file:" + ref
}
