package xfer

import "fmt"

// BuildCRCLabel returns the "Class::member::Type" label used in checksum logs.
func BuildCRCLabel(className, memberName, typeName string) string {
	if className == "" {
		className = "Unknown"
	}
	return fmt.Sprintf("%s::%s::%s", className, memberName, typeName)
}
