package store

import (
	"fmt"
	"os"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
