// Package fetch implements the HTTP download surface spec.md §6
// describes as an external collaborator: a range-resuming GET for each
// dump table, short-circuited by a HEAD when the local file is already
// current.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Fetch retrieves url into destPath. If destPath already exists and is
// non-empty, a HEAD
// request checks whether the remote Content-Length matches the local
// size — if so, the download is skipped entirely. Otherwise the local
// file is opened in append mode and a ranged GET resumes from its
// current size, the byte offset the server's Content-Range response
// confirms before the body is streamed to the file.
func Fetch(ctx context.Context, client *http.Client, url, destPath string) error {
	if client == nil {
		client = http.DefaultClient
	}

	localSize, err := localFileSize(destPath)
	if err != nil {
		return fmt.Errorf("fetch: stat %s: %w", destPath, err)
	}

	if localSize > 0 {
		current, err := isCurrent(ctx, client, url, localSize)
		if err != nil {
			return err
		}
		if current {
			return nil
		}
	}

	file, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("fetch: opening %s: %w", destPath, err)
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("fetch: building request for %s: %w", url, err)
	}
	if localSize > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", localSize))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("fetch: GET %s: unexpected status %s", url, resp.Status)
	}

	if resp.StatusCode == http.StatusPartialContent {
		offset, ok := rangeOffset(resp.Header.Get("Content-Range"))
		if ok {
			if _, err := file.Seek(offset, io.SeekStart); err != nil {
				return fmt.Errorf("fetch: seeking %s to %d: %w", destPath, offset, err)
			}
			if err := file.Truncate(offset); err != nil {
				return fmt.Errorf("fetch: truncating %s to %d: %w", destPath, offset, err)
			}
		}
	} else if localSize > 0 {
		// Server ignored the Range request and is sending the whole
		// body again: start the file over rather than appending onto
		// stale bytes.
		if err := file.Truncate(0); err != nil {
			return fmt.Errorf("fetch: truncating %s: %w", destPath, err)
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("fetch: rewinding %s: %w", destPath, err)
		}
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("fetch: writing %s: %w", destPath, err)
	}
	return nil
}

func localFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func isCurrent(ctx context.Context, client *http.Client, url string, localSize int64) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, fmt.Errorf("fetch: building HEAD request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("fetch: HEAD %s: %w", url, err)
	}
	defer resp.Body.Close()

	return resp.ContentLength == localSize, nil
}

// rangeOffset parses the start offset out of a Content-Range header of
// the form "bytes <start>-<end>/<total>".
func rangeOffset(header string) (int64, bool) {
	var start, end, total int64
	n, err := fmt.Sscanf(header, "bytes %d-%d/%d", &start, &end, &total)
	if err != nil || n != 3 {
		return 0, false
	}
	return start, true
}
