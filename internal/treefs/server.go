package treefs

import (
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"

	billy "github.com/go-git/go-billy/v5"
	nfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"

	"github.com/agentic-research/quill/internal/logger"
)

// handleCacheSize bounds the NFS file-handle cache. Bundles are small.
const handleCacheSize = 1024

// Server exports a read-only bundle view over NFSv3.
type Server struct {
	listener net.Listener
	done     chan error
}

// Serve listens on addr (":0" picks a free port) and exports fs. The
// export is always read-only: FS rejects every write.
func Serve(addr string, fs billy.Filesystem) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("nfs listen %s: %w", addr, err)
	}
	handler := nfshelper.NewCachingHandler(nfshelper.NewNullAuthHandler(fs), handleCacheSize)

	s := &Server{listener: listener, done: make(chan error, 1)}
	go func() {
		s.done <- nfs.Serve(listener, handler)
	}()
	logger.Debug("nfs: exporting on %s", listener.Addr())
	return s, nil
}

// Port is the TCP port the export listens on.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Close stops the export and waits for the serve loop to return.
func (s *Server) Close() error {
	err := s.listener.Close()
	if serr := <-s.done; serr != nil && !errors.Is(serr, net.ErrClosed) {
		logger.Debug("nfs: serve loop ended: %v", serr)
	}
	return err
}

// mountOptions returns the read-only NFSv3 mount options for goos.
func mountOptions(goos string, port int) (string, error) {
	switch goos {
	case "darwin":
		return fmt.Sprintf("port=%d,mountport=%d,vers=3,tcp,locallocks,noresvport,rdonly", port, port), nil
	case "linux":
		return fmt.Sprintf("port=%d,mountport=%d,vers=3,tcp,local_lock=all,nolock,ro", port, port), nil
	}
	return "", fmt.Errorf("mounting is not supported on %s", goos)
}

// Mount attaches the export at mountpoint with the system mount command,
// which needs sudo.
func Mount(port int, mountpoint string) error {
	opts, err := mountOptions(runtime.GOOS, port)
	if err != nil {
		return err
	}
	out, err := exec.Command("sudo", "mount", "-t", "nfs", "-o", opts, "localhost:/", mountpoint).CombinedOutput()
	if err != nil {
		return fmt.Errorf("mount %s: %w\n%s", mountpoint, err, out)
	}
	return nil
}

// Unmount detaches mountpoint, trying diskutil first on macOS.
func Unmount(mountpoint string) error {
	if runtime.GOOS == "darwin" && exec.Command("diskutil", "unmount", mountpoint).Run() == nil {
		return nil
	}
	out, err := exec.Command("sudo", "umount", mountpoint).CombinedOutput()
	if err != nil {
		return fmt.Errorf("unmount %s: %w\n%s", mountpoint, err, out)
	}
	return nil
}
