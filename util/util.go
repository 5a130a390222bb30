package util

import (
	"github.com/google/uuid"
	"github.com/mohae/deepcopy"
	"github.com/project-flogo/core/data/coerce"
)

// IDGenerator produces identities for new entities
type IDGenerator func() string

// NewID returns a new random identity
func NewID() string {
	return uuid.NewString()
}

// DeepCopyMap returns an independent copy of a free-form map, nil stays nil
func DeepCopyMap(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	copiedData := deepcopy.Copy(data)
	copiedMap, _ := coerce.ToObject(copiedData)
	return copiedMap
}

// CopyStrings returns an independent copy of a string slice, nil stays nil
func CopyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return deepcopy.Copy(s).([]string)
}
