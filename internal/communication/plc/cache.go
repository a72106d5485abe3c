package plc

import (
	"container/list"
	"sync"
	"time"
)

// CachedEstado representa un estado de máquina en cache con su momento de lectura
type CachedEstado struct {
	Estado    *EstadoMaquina
	Timestamp time.Time
}

// EstadoCache implementa una cache LRU O(1) thread-safe de estados de máquina.
// Evita golpear el PLC en cada verificación de conflicto del planificador.
type EstadoCache struct {
	maxEntries int
	ttl        time.Duration
	entries    map[int]*list.Element
	lruList    *list.List
	mu         sync.RWMutex
}

// entry es un elemento interno de la cache
type entry struct {
	maquinaID int
	value     *CachedEstado
}

// NewEstadoCache crea una nueva cache de estados
func NewEstadoCache(maxEntries int, ttl time.Duration) *EstadoCache {
	return &EstadoCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[int]*list.Element),
		lruList:    list.New(),
	}
}

// Get obtiene el estado cacheado de una máquina
// Retorna (estado, encontrado)
func (c *EstadoCache) Get(maquinaID int) (*EstadoMaquina, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[maquinaID]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*entry)

	// Verificar TTL
	if time.Since(entry.value.Timestamp) > c.ttl {
		// Expirado - eliminar
		c.removeElement(elem)
		return nil, false
	}

	// Mover al frente (más recientemente usado)
	c.lruList.MoveToFront(elem)
	return entry.value.Estado, true
}

// Set almacena el estado de una máquina en la cache
func (c *EstadoCache) Set(maquinaID int, estado *EstadoMaquina) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Si ya existe, actualizar y mover al frente
	if elem, ok := c.entries[maquinaID]; ok {
		c.lruList.MoveToFront(elem)
		entry := elem.Value.(*entry)
		entry.value = &CachedEstado{
			Estado:    estado,
			Timestamp: time.Now(),
		}
		return
	}

	// Nueva entrada
	newEntry := &entry{
		maquinaID: maquinaID,
		value: &CachedEstado{
			Estado:    estado,
			Timestamp: time.Now(),
		},
	}

	elem := c.lruList.PushFront(newEntry)
	c.entries[maquinaID] = elem

	// Evictar si excede tamaño máximo
	if c.lruList.Len() > c.maxEntries {
		c.evictOldest()
	}
}

// evictOldest elimina el elemento menos recientemente usado (al final de la lista)
func (c *EstadoCache) evictOldest() {
	elem := c.lruList.Back()
	if elem != nil {
		c.removeElement(elem)
	}
}

// removeElement elimina un elemento de la cache
func (c *EstadoCache) removeElement(elem *list.Element) {
	c.lruList.Remove(elem)
	entry := elem.Value.(*entry)
	delete(c.entries, entry.maquinaID)
}

// Clear limpia toda la cache
func (c *EstadoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[int]*list.Element)
	c.lruList = list.New()
}

// Len retorna el número de entradas en la cache
func (c *EstadoCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lruList.Len()
}
