package cache

import "fmt"

// GenerateKey builds a namespaced cache key, e.g. "halt:flag" or
// "validation:lock:AAPL".
func GenerateKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// GenerateKeyWithParams appends each parameter as a colon-separated key
// segment.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s:%v", key, param)
	}
	return key
}
