package badger

import "strings"

// objectPrefix namespaces object keys inside the Badger keyspace.
const objectPrefix = "obj:"

// makeObjectKey maps an object store key to a Badger key.
func makeObjectKey(key string) []byte {
	return []byte(objectPrefix + key)
}

// objectKeyFromBadger strips the namespace from a Badger key.
func objectKeyFromBadger(raw []byte) string {
	return strings.TrimPrefix(string(raw), objectPrefix)
}
