package ollama

import (
	"crypto/sha256"
	"fmt"
)

// ContainerNamePrefix prefixes every managed container name.
const ContainerNamePrefix = "redline-ollama-"

// ContainerNameForHome derives a stable container name from the home
// directory path, so multiple homes on one machine get separate containers.
func ContainerNameForHome(homePath string) string {
	sum := sha256.Sum256([]byte(homePath))
	return fmt.Sprintf("%s%x", ContainerNamePrefix, sum[:4])
}
