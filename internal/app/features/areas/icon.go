// internal/app/features/areas/icon.go
package areas

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/dalemusser/servicehub/internal/app/system/apierr"
	"github.com/dalemusser/servicehub/internal/app/system/httpjson"
	"github.com/dalemusser/servicehub/internal/app/system/limits"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleSetIcon replaces the area icon. The previous stored object is removed
// best-effort once the new one is in place.
func (h *Handler) HandleSetIcon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("El id del eje no es válido."), "")
		return
	}
	if err := r.ParseMultipartForm(limits.MaxIconUpload); err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("No se pudo leer el archivo enviado."), "")
		return
	}
	f, fh, err := r.FormFile("icon")
	if err != nil {
		apierr.Write(w, h.Log, apierr.BadRequest("Debe adjuntar el ícono del eje."), "")
		return
	}
	defer f.Close()

	key := fmt.Sprintf("areas/%s-%s", uuid.New().String()[:8], filepath.Base(fh.Filename))
	opts := &storage.PutOptions{ContentType: fh.Header.Get("Content-Type")}
	if err := h.Storage.Put(ctx, key, f, opts); err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al guardar el ícono.")
		return
	}

	prev, err := h.Areas.SetIcon(ctx, id, key)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierr.Write(w, h.Log, apierr.NotFound("No se encontró el eje."), "")
		return
	}
	if err != nil {
		apierr.Write(w, h.Log, err, "Ocurrió un error al actualizar el eje.")
		return
	}
	if prev.IconKey != "" && prev.IconKey != key {
		if err := h.Storage.Delete(ctx, prev.IconKey); err != nil {
			h.Log.Warn("delete replaced area icon", zap.String("key", prev.IconKey), zap.Error(err))
		}
	}

	httpjson.Write(w, http.StatusOK, map[string]string{"icon": key})
}
