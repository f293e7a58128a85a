package cache

import (
	"sync"
	"time"
)

// ============================================================================
// CACHE SERVICE - IN-MEMORY CACHING CON TTL
// ============================================================================
// Implementación de caché thread-safe con expiración automática.
// Cada petición autenticada re-valida la identidad contra la base de datos
// (cabeceras x-user-email / x-user-ptp); este caché absorbe ese costo con un
// TTL corto. Toda mutación de credenciales debe invalidar la key del usuario.
//
// Uso:
//   cache := NewCache(30*time.Second, time.Minute)
//   cache.Set("user:alice@x.com", user)
//   if data, found := cache.Get("user:alice@x.com"); found {
//       return data
//   }

// Item representa un elemento en caché con timestamp de expiración
type Item struct {
	Value      interface{}
	Expiration int64 // Unix timestamp
}

// Cache es un almacén thread-safe de key-value con TTL
type Cache struct {
	items             map[string]Item
	mu                sync.RWMutex
	defaultExpiration time.Duration
	cleanupInterval   time.Duration
	stopCleanup       chan bool
}

// NewCache crea una nueva instancia de caché con TTL por defecto
// cleanupInterval ejecuta limpieza periódica de items expirados
func NewCache(defaultExpiration, cleanupInterval time.Duration) *Cache {
	cache := &Cache{
		items:             make(map[string]Item),
		defaultExpiration: defaultExpiration,
		cleanupInterval:   cleanupInterval,
		stopCleanup:       make(chan bool),
	}

	go cache.startCleanupTimer()

	return cache
}

// Set almacena un valor con la expiración por defecto
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.defaultExpiration)
}

// SetWithTTL almacena un valor con una duración de expiración específica
func (c *Cache) SetWithTTL(key string, value interface{}, duration time.Duration) {
	var expiration int64

	if duration > 0 {
		expiration = time.Now().Add(duration).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = Item{
		Value:      value,
		Expiration: expiration,
	}
	c.mu.Unlock()
}

// Get recupera un valor del caché
// Retorna (valor, true) si existe y no ha expirado
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found {
		return nil, false
	}

	if item.Expiration > 0 && time.Now().UnixNano() > item.Expiration {
		c.Delete(key)
		return nil, false
	}

	return item.Value, true
}

// Delete elimina un key del caché
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeletePrefix elimina todas las keys que empiezan con el prefijo dado
// (ej: "user:" invalida todas las identidades cacheadas)
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key := range c.items {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.items, key)
			count++
		}
	}
	return count
}

// Clear limpia completamente el caché
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]Item)
	c.mu.Unlock()
}

// Count retorna el número de items en caché (incluye expirados)
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// startCleanupTimer ejecuta limpieza periódica de items expirados
func (c *Cache) startCleanupTimer() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// deleteExpired elimina todos los items expirados
func (c *Cache) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for key, item := range c.items {
		if item.Expiration > 0 && now > item.Expiration {
			delete(c.items, key)
		}
	}
}

// Stop detiene la limpieza automática
func (c *Cache) Stop() {
	c.stopCleanup <- true
}
