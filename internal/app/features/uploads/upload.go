// internal/app/features/uploads/upload.go
package uploads

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/limits"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type uploadedFile struct {
	Key         string `json:"key"`
	FileName    string `json:"fileName"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	URL         string `json:"url,omitempty"`
}

// HandleUpload stores every file in the multipart field "files" and returns
// the generated object keys. Keys are date-partitioned and prefixed with a
// short random id so repeated uploads of the same filename never collide.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(limits.MaxFileUpload); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("No se pudo leer el archivo enviado."), "")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		apierr.Write(w, h.Log, apierr.BadRequest("Debe adjuntar al menos un archivo."), "")
		return
	}

	out := make([]uploadedFile, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			apierr.Write(w, h.Log, err, "Ocurrió un error al procesar el archivo.")
			return
		}

		now := time.Now().UTC()
		key := filepath.ToSlash(filepath.Join(
			fmt.Sprintf("uploads/%04d/%02d", now.Year(), now.Month()),
			fmt.Sprintf("%s-%s", uuid.New().String()[:8], sanitizeFilename(fh.Filename)),
		))
		contentType := fh.Header.Get("Content-Type")

		err = h.Storage.Put(ctx, key, f, &storage.PutOptions{ContentType: contentType})
		f.Close()
		if err != nil {
			apierr.Write(w, h.Log, err, "Ocurrió un error al guardar el archivo.")
			return
		}

		uf := uploadedFile{
			Key:         key,
			FileName:    fh.Filename,
			Size:        fh.Size,
			ContentType: contentType,
		}
		if url, err := h.Storage.PresignedURL(ctx, key, &storage.PresignOptions{Expires: 15 * time.Minute}); err == nil {
			uf.URL = url
		} else {
			h.Log.Warn("presign uploaded file", zap.String("key", key), zap.Error(err))
		}
		out = append(out, uf)
	}

	httpjson.Write(w, http.StatusCreated, out)
}

// sanitizeFilename keeps object keys to a safe character set. Anything
// outside [a-zA-Z0-9._-] becomes an underscore; long names are truncated
// keeping the extension.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}
