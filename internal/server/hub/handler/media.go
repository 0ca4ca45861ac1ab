package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Alwanly/social-hub/internal/media"
	"github.com/Alwanly/social-hub/internal/server/hub/dto"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/wrapper"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// deriveURLs godoc
// @Summary      CDN URLs for an uploaded image
// @Tags         media
// @Produce      json
// @Param        content_id query string true "Content id"
// @Param        category query string true "AVATAR, POST or LISTING"
// @Success      200 {object} wrapper.JSONResult{data=dto.DerivedURLsResponse}
// @Router       /media/urls [get]
func (h *Handler) deriveURLs(c *fiber.Ctx) error {
	operation(c, "derive_urls")
	q := new(dto.DeriveURLsQuery)
	if ok, err := bindQuery(c, q); !ok {
		return err
	}
	category := media.Category(strings.ToUpper(q.Category))
	urls, err := h.CDN.DeriveURLs(q.ContentID, category)
	res := wrapper.From(dto.DerivedURLsResponse{
		ContentID: q.ContentID,
		Category:  string(category),
		URLs:      urls,
	}, err)
	return respond(c, res, fiber.StatusOK)
}

// upload godoc
// @Summary      Upload images
// @Description  Uploads every "files" part into the bucket under the caller's folder. With one file the optional "id" form value names it. With several files each one is reported separately and failures come back as warnings.
// @Tags         media
// @Accept       multipart/form-data
// @Produce      json
// @Param        bucket path string true "avatars, posts or listings"
// @Param        files formData file true "Image"
// @Param        id formData string false "File name without extension"
// @Success      201 {object} wrapper.JSONResult{data=media.Upload}
// @Router       /media/{bucket} [post]
// @Security     BearerAuth
func (h *Handler) upload(c *fiber.Ctx) error {
	operation(c, "upload")
	bucket := c.Params("bucket")
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldBucket, bucket))

	form, err := c.MultipartForm()
	if err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(wrapper.ResponseFailed(http.StatusBadRequest, "Invalid multipart form", nil))
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(wrapper.ResponseFailed(http.StatusBadRequest, "no files in form field \"files\"", nil))
	}

	files := make([]media.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			logger.AddToContext(c.UserContext(), zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(wrapper.ResponseFailed(http.StatusBadRequest, "Unreadable file", nil))
		}
		files = append(files, f)
	}

	if len(files) == 1 {
		id := c.FormValue("id")
		if id == "" && bucket == media.BucketAvatars {
			id = "avatar"
		}
		return respond(c, h.Media.Upload(c.UserContext(), bucket, me(c), files[0], id), fiber.StatusCreated)
	}
	return respond(c, h.Media.UploadMany(c.UserContext(), bucket, me(c), files), fiber.StatusCreated)
}

func readFile(fh *multipart.FileHeader) (media.File, error) {
	if fh.Size > media.MaxFileSize {
		return media.File{}, fmt.Errorf("%w: %s is %d bytes", media.ErrInvalidFile, fh.Filename, fh.Size)
	}
	src, err := fh.Open()
	if err != nil {
		return media.File{}, err
	}
	defer src.Close()
	b, err := io.ReadAll(io.LimitReader(src, media.MaxFileSize+1))
	if err != nil {
		return media.File{}, err
	}
	return media.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        b,
	}, nil
}

func (h *Handler) listMedia(c *fiber.Ctx) error {
	operation(c, "list_media")
	return respond(c, h.Media.List(c.UserContext(), c.Params("bucket"), me(c)), fiber.StatusOK)
}

// removeMedia godoc
// @Summary      Remove uploaded objects
// @Description  Every path must sit in the caller's own folder.
// @Tags         media
// @Accept       json
// @Produce      json
// @Param        bucket path string true "Bucket"
// @Param        request body dto.RemoveMediaRequest true "Object paths"
// @Success      200 {object} wrapper.JSONResult{data=int}
// @Router       /media/{bucket} [delete]
// @Security     BearerAuth
func (h *Handler) removeMedia(c *fiber.Ctx) error {
	operation(c, "remove_media")
	req := new(dto.RemoveMediaRequest)
	if ok, err := bind(c, req); !ok {
		return err
	}
	prefix := me(c) + "/"
	for _, p := range req.Paths {
		if !strings.HasPrefix(p, prefix) || strings.Contains(p, "..") {
			return c.Status(fiber.StatusForbidden).JSON(wrapper.ResponseFailed(http.StatusForbidden, "path outside your folder", nil))
		}
	}
	return respond(c, h.Media.Remove(c.UserContext(), c.Params("bucket"), req.Paths), fiber.StatusOK)
}
