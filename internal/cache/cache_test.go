package cache

import (
	"testing"
	"time"
)

func TestCacheBasicOperations(t *testing.T) {
	cache := NewCache(30*time.Second, time.Minute)
	defer cache.Stop()

	// Test Set y Get
	cache.Set("user:alice@x.com", "value1")

	value, found := cache.Get("user:alice@x.com")
	if !found {
		t.Error("Expected to find user:alice@x.com")
	}
	if value != "value1" {
		t.Errorf("Expected 'value1', got %v", value)
	}

	// Test Get de key inexistente
	_, found = cache.Get("nonexistent")
	if found {
		t.Error("Expected not to find nonexistent key")
	}
}

func TestCacheExpiration(t *testing.T) {
	cache := NewCache(30*time.Second, time.Minute)
	defer cache.Stop()

	cache.SetWithTTL("expiring", "value", 100*time.Millisecond)

	_, found := cache.Get("expiring")
	if !found {
		t.Error("Expected to find item before expiration")
	}

	time.Sleep(150 * time.Millisecond)

	_, found = cache.Get("expiring")
	if found {
		t.Error("Expected item to be expired")
	}
}

func TestCacheDelete(t *testing.T) {
	cache := NewCache(30*time.Second, time.Minute)
	defer cache.Stop()

	cache.Set("user:bob@x.com", "value1")
	cache.Delete("user:bob@x.com")

	_, found := cache.Get("user:bob@x.com")
	if found {
		t.Error("Expected key to be deleted")
	}
}

func TestCacheDeletePrefix(t *testing.T) {
	cache := NewCache(30*time.Second, time.Minute)
	defer cache.Stop()

	cache.Set("user:alice@x.com", "data1")
	cache.Set("user:bob@x.com", "data2")
	cache.Set("status:42", "data3")

	// Eliminar todas las identidades cacheadas
	deleted := cache.DeletePrefix("user:")

	if deleted != 2 {
		t.Errorf("Expected to delete 2 items, got %d", deleted)
	}

	_, found := cache.Get("user:alice@x.com")
	if found {
		t.Error("Expected user:alice@x.com to be deleted")
	}

	// status:42 no debería eliminarse
	_, found = cache.Get("status:42")
	if !found {
		t.Error("Expected status:42 to remain")
	}
}

func TestCacheClear(t *testing.T) {
	cache := NewCache(30*time.Second, time.Minute)
	defer cache.Stop()

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")

	if cache.Count() != 2 {
		t.Errorf("Expected 2 items, got %d", cache.Count())
	}

	cache.Clear()

	if cache.Count() != 0 {
		t.Errorf("Expected 0 items after Clear, got %d", cache.Count())
	}
}
