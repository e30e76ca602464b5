package importer

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/bcgov/lcfs/utils"
)

const scanChunkSize = 2048

func clamdAddress() string {
	host := strings.TrimSpace(os.Getenv("CLAMAV_HOST"))
	if host == "" {
		host = "127.0.0.1"
	}
	port := strings.TrimSpace(os.Getenv("CLAMAV_PORT"))
	if port == "" {
		port = "3310"
	}
	return net.JoinHostPort(host, port)
}

// scanBytes streams the payload to clamd over the INSTREAM protocol:
// null-terminated command, then length-prefixed chunks, then a zero-length
// terminator. clamd answers "stream: OK" for clean content.
func scanBytes(ctx context.Context, data []byte) error {
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", clamdAddress())
	if err != nil {
		return utils.NewExternalError("virus scanner unreachable", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(60 * time.Second))
	}

	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		return utils.NewExternalError("virus scan failed", err)
	}

	chunkLen := make([]byte, 4)
	for off := 0; off < len(data); off += scanChunkSize {
		end := off + scanChunkSize
		if end > len(data) {
			end = len(data)
		}
		binary.BigEndian.PutUint32(chunkLen, uint32(end-off))
		if _, err := conn.Write(chunkLen); err != nil {
			return utils.NewExternalError("virus scan failed", err)
		}
		if _, err := conn.Write(data[off:end]); err != nil {
			return utils.NewExternalError("virus scan failed", err)
		}
	}
	binary.BigEndian.PutUint32(chunkLen, 0)
	if _, err := conn.Write(chunkLen); err != nil {
		return utils.NewExternalError("virus scan failed", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\x00')
	if err != nil && reply == "" {
		return utils.NewExternalError("virus scan failed", err)
	}
	reply = strings.TrimRight(strings.TrimSpace(reply), "\x00")
	if !strings.HasSuffix(reply, "OK") {
		return utils.NewValidationError("file rejected by virus scanner", map[string]string{
			"file": fmt.Sprintf("scanner verdict: %s", reply),
		})
	}
	return nil
}
