package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleamarket/internal/ipauth"
	"fleamarket/internal/storage"
	"fleamarket/internal/upload"
	"fleamarket/models"
)

// ownerFields narrows the preloaded owner to its public identity. The id is
// needed for gorm to match the association.
func ownerFields(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "employee_id")
}

// itemFilters applies the shared listing filters: exact category and
// item_type matches, the sold flag (unsold by default) and a substring
// search over name and description.
func itemFilters(db *gorm.DB, q url.Values) *gorm.DB {
	tx := db.Where("is_sold = ?", q.Get("sold") == "true")
	if c := q.Get("category"); c != "" {
		tx = tx.Where("category = ?", c)
	}
	if t := q.Get("item_type"); t != "" {
		tx = tx.Where("item_type = ?", t)
	}
	if s := q.Get("search"); s != "" {
		p := "%" + s + "%"
		tx = tx.Where(db.Where("name LIKE ?", p).Or("description LIKE ?", p))
	}
	return tx
}

// ListItems handles GET /api/items.
func ListItems(w http.ResponseWriter, r *http.Request, db *gorm.DB, log *zap.Logger) {
	var items []models.Item
	err := itemFilters(db, r.URL.Query()).
		Preload("User", ownerFields).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		log.Error("listing items failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error", err)
		return
	}
	for i := range items {
		items[i].DecodeImages()
	}
	respondList(w, items, len(items))
}

// ListUserItems handles GET /api/items/user/{userID}. An owner with no
// items yields an empty successful result.
func ListUserItems(w http.ResponseWriter, r *http.Request, db *gorm.DB, log *zap.Logger) {
	userID, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id", nil)
		return
	}
	var items []models.Item
	err = itemFilters(db, r.URL.Query()).
		Where("user_id = ?", userID).
		Preload("User", ownerFields).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		log.Error("listing user items failed", zap.Uint64("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error", err)
		return
	}
	for i := range items {
		items[i].DecodeImages()
	}
	respondList(w, items, len(items))
}

// GetItem handles GET /api/items/{id}. The view counter is bumped with a
// column-only update so the row's updated_at stays untouched.
func GetItem(w http.ResponseWriter, r *http.Request, db *gorm.DB, log *zap.Logger) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, "item not found", nil)
		return
	}

	res := db.Model(&models.Item{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		log.Error("incrementing view count failed", zap.Uint64("item_id", id), zap.Error(res.Error))
		respondError(w, http.StatusInternalServerError, "server error", res.Error)
		return
	}

	var item models.Item
	err = db.Preload("User", ownerFields).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "item not found", nil)
		return
	}
	if err != nil {
		log.Error("fetching item failed", zap.Uint64("item_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error", err)
		return
	}
	item.DecodeImages()
	respondData(w, http.StatusOK, "", item)
}

// CreateItem handles POST /api/items: multipart form fields plus up to five
// image files.
func CreateItem(w http.ResponseWriter, r *http.Request, db *gorm.DB, store storage.Store, log *zap.Logger, maxUpload int64) {
	user, ok := ipauth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := upload.ParseForm(r, maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data", err)
		return
	}

	item := models.Item{
		ItemType:    r.PostFormValue("item_type"),
		Category:    r.PostFormValue("category"),
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		UserID:      user.ID,
	}
	if item.ItemType == "" {
		item.ItemType = models.TypeSell
	}

	if v := r.PostFormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid price", nil)
			return
		}
		item.Price = &price
	}
	// The condition grade is meaningless for buy-type items and dropped.
	if v := r.PostFormValue("item_condition"); v != "" && item.ItemType == models.TypeSell {
		cond, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid condition grade", nil)
			return
		}
		item.ItemCondition = &cond
	}

	if err := item.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	files, err := upload.Images(r.Context(), r, store)
	if err != nil {
		if upload.Validation(err) {
			respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		log.Error("storing uploaded images failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to store images", err)
		return
	}
	item.RawImages = models.EncodeImageList(toImageList(files))

	if err := db.Create(&item).Error; err != nil {
		log.Error("creating item failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create item", err)
		return
	}
	item.DecodeImages()
	respondData(w, http.StatusCreated, "item created", item)
}

// UpdateItem handles PUT /api/items/{id}: partial field update plus image
// reconciliation. Only the owner may modify an item.
func UpdateItem(w http.ResponseWriter, r *http.Request, db *gorm.DB, store storage.Store, log *zap.Logger, maxUpload int64) {
	user, ok := ipauth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, "item not found", nil)
		return
	}

	var item models.Item
	err = db.First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "item not found", nil)
		return
	}
	if err != nil {
		log.Error("fetching item failed", zap.Uint64("item_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error", err)
		return
	}
	if item.UserID != user.ID {
		respondError(w, http.StatusForbidden, "not allowed to modify this item", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := upload.ParseForm(r, maxUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data", err)
		return
	}

	// candidate carries the merged state so the variant rules can be checked
	// before anything is written.
	candidate := item
	updates := map[string]any{}

	if v := r.PostFormValue("category"); v != "" {
		candidate.Category = v
		updates["category"] = v
	}
	if v := r.PostFormValue("name"); v != "" {
		candidate.Name = v
		updates["name"] = v
	}
	if v := r.PostFormValue("description"); v != "" {
		candidate.Description = v
		updates["description"] = v
	}
	if v := r.PostFormValue("item_type"); v != "" {
		candidate.ItemType = v
		updates["item_type"] = v
	}
	if v := r.PostFormValue("item_condition"); v != "" {
		cond, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid condition grade", nil)
			return
		}
		candidate.ItemCondition = &cond
		updates["item_condition"] = cond
	}
	if v := r.PostFormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid price", nil)
			return
		}
		candidate.Price = &price
		updates["price"] = price
	}
	if vals, ok := r.PostForm["is_sold"]; ok && len(vals) > 0 {
		sold := vals[0] == "true"
		candidate.IsSold = sold
		updates["is_sold"] = sold
	}

	if err := candidate.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	// New files are stored before reconciliation so a rejected upload never
	// deletes anything.
	files, err := upload.Images(r.Context(), r, store)
	if err != nil {
		if upload.Validation(err) {
			respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		log.Error("storing uploaded images failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to store images", err)
		return
	}

	if encoded, changed := reconcileImages(r, &item, files, store, log); changed {
		updates["images"] = encoded
	}

	if len(updates) > 0 {
		if err := db.Model(&item).Updates(updates).Error; err != nil {
			log.Error("updating item failed", zap.Uint64("item_id", id), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to update item", err)
			return
		}
	}

	var updated models.Item
	if err := db.Preload("User", ownerFields).First(&updated, id).Error; err != nil {
		log.Error("reloading item failed", zap.Uint64("item_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error", err)
		return
	}
	updated.DecodeImages()
	respondData(w, http.StatusOK, "item updated", updated)
}

// reconcileImages applies the image update rules: an originalImages retain
// set keeps the named stored images and removes the rest; new files without
// a retain set replace everything; neither leaves the list untouched. New
// uploads are appended to the result. File removal is best effort.
func reconcileImages(r *http.Request, item *models.Item, files []upload.SavedFile, store storage.Store, log *zap.Logger) (string, bool) {
	originals := r.PostForm["originalImages"]
	if len(originals) == 0 {
		originals = r.PostForm["originalImages[]"]
	}
	hasNew := len(files) > 0
	if len(originals) == 0 && !hasNew {
		return "", false
	}

	current := models.DecodeImageList(item.RawImages)
	final := []models.ItemImage{}

	if len(originals) > 0 {
		retain := make(map[string]bool, len(originals))
		for _, name := range originals {
			retain[name] = true
		}
		for _, img := range current {
			if retain[img.Filename] {
				final = append(final, img)
				continue
			}
			if err := store.Remove(r.Context(), img.Filename); err != nil {
				log.Warn("removing image file failed", zap.String("filename", img.Filename), zap.Error(err))
			}
		}
	} else {
		// Replace all: no retain set but new files supplied.
		for _, img := range current {
			if err := store.Remove(r.Context(), img.Filename); err != nil {
				log.Warn("removing image file failed", zap.String("filename", img.Filename), zap.Error(err))
			}
		}
	}

	final = append(final, toImageList(files)...)
	return models.EncodeImageList(final), true
}

// DeleteItem handles DELETE /api/items/{id}: image files go first, then the
// row. Only the owner may delete an item.
func DeleteItem(w http.ResponseWriter, r *http.Request, db *gorm.DB, store storage.Store, log *zap.Logger) {
	user, ok := ipauth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated", nil)
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusNotFound, "item not found", nil)
		return
	}

	var item models.Item
	err = db.First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusNotFound, "item not found", nil)
		return
	}
	if err != nil {
		log.Error("fetching item failed", zap.Uint64("item_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "server error", err)
		return
	}
	if item.UserID != user.ID {
		respondError(w, http.StatusForbidden, "not allowed to delete this item", nil)
		return
	}

	for _, img := range models.DecodeImageList(item.RawImages) {
		if err := store.Remove(r.Context(), img.Filename); err != nil {
			log.Warn("removing image file failed", zap.String("filename", img.Filename), zap.Error(err))
		}
	}

	if err := db.Delete(&models.Item{}, id).Error; err != nil {
		log.Error("deleting item failed", zap.Uint64("item_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to delete item", err)
		return
	}
	respondData(w, http.StatusOK, "item deleted", nil)
}

func toImageList(files []upload.SavedFile) []models.ItemImage {
	list := make([]models.ItemImage, 0, len(files))
	for _, f := range files {
		list = append(list, models.ItemImage{URL: f.URL, Filename: f.Filename})
	}
	return list
}
