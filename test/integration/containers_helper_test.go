//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// containerRuntime reports where testcontainers will find a container
// engine. DOCKER_HOST wins when set; otherwise the usual Docker and rootless
// Podman sockets are checked. The returned string is the skip reason when
// nothing is reachable.
func containerRuntime() (string, bool) {
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		if sock, ok := strings.CutPrefix(host, "unix://"); ok {
			if _, err := os.Stat(sock); err != nil {
				return "DOCKER_HOST socket " + sock + " not found", false
			}
		}
		return host, true
	}

	candidates := []string{"/var/run/docker.sock"}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "podman", "podman.sock"))
	} else if uid := os.Getuid(); uid > 0 {
		candidates = append(candidates, filepath.Join("/run/user", strconv.Itoa(uid), "podman", "podman.sock"))
	}
	for _, sock := range candidates {
		if _, err := os.Stat(sock); err == nil {
			return "unix://" + sock, true
		}
	}
	return "no container runtime socket in " + strings.Join(candidates, ", "), false
}
