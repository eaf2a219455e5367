package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"

	"github.com/chaos-io/bgremover/cache"
	"github.com/chaos-io/bgremover/matte"
	"github.com/chaos-io/bgremover/util"
)

func (s *Server) health(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"uploads": s.store.Len(),
		"backend": s.proc.Pipeline.Backend().Name(),
	}
	if s.proc.Cache != nil {
		resp["cache"] = s.proc.Cache.Stats()
	}
	c.JSON(http.StatusOK, resp)
}

// purgeCache 清空结果缓存，返回清空前的统计
func (s *Server) purgeCache(c *gin.Context) {
	if s.proc.Cache == nil {
		c.Status(http.StatusNoContent)
		return
	}
	st := s.proc.Cache.Stats()
	s.proc.Cache.Purge()
	s.logger.Info("cache purged", "entries", st.Size)
	c.JSON(http.StatusOK, st)
}

// upload 保存原图并用白色背景做一次初始处理
func (s *Server) upload(c *gin.Context) {
	limit := s.cfg.Server.MaxUploadBytes
	if c.Request.ContentLength > limit {
		s.abort(c, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: upload exceeds %d bytes", matte.ErrInvalidInput, limit))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.abort(c, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: upload exceeds %d bytes", matte.ErrInvalidInput, limit))
			return
		}
		s.abort(c, http.StatusBadRequest, fmt.Errorf("%w: missing file: %v", matte.ErrInvalidInput, err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.abort(c, http.StatusBadRequest, fmt.Errorf("%w: %v", matte.ErrInvalidInput, err))
		return
	}
	defer func() {
		_ = f.Close()
	}()

	img, err := util.DecodeImage(f)
	if err != nil {
		s.abort(c, http.StatusBadRequest, fmt.Errorf("%w: %v", matte.ErrInvalidInput, err))
		return
	}
	src, err := matte.ToNRGBA(img)
	if err != nil {
		s.fail(c, err)
		return
	}
	u := NewUpload(src, cache.HashImage(src))

	// 初始处理结果进入缓存，前端默认参数的首次请求直接命中
	if _, err := s.proc.ProcessHashed(u.Image, u.Hash, matte.DefaultParams()); err != nil {
		s.fail(c, err)
		return
	}
	s.store.Set(u)
	s.logger.Info("image uploaded", "id", u.ID, "filename", fh.Filename,
		"width", src.Rect.Dx(), "height", src.Rect.Dy())

	c.JSON(http.StatusOK, uploadResponse{
		ID:     u.ID,
		Width:  src.Rect.Dx(),
		Height: src.Rect.Dy(),
		Status: "processed",
	})
}

func (s *Server) deleteUpload(c *gin.Context) {
	if err := s.store.Delete(c.Param("id")); err != nil {
		s.abort(c, http.StatusNotFound, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// process 返回 PNG，?preview=1 时返回缩略图
func (s *Server) process(c *gin.Context) {
	u, err := s.store.Get(c.Param("id"))
	if err != nil {
		s.abort(c, http.StatusNotFound, err)
		return
	}
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, fmt.Errorf("%w: %v", matte.ErrInvalidParameter, err))
		return
	}
	preview := c.Query("preview") == "1" || c.Query("preview") == "true"
	data, err := s.render(u, &req, preview)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// live 每收到一条参数消息，先回复预览图，再回复全尺寸结果。
// 出错时回复一条 JSON 文本消息，会话继续。
func (s *Server) live(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.Get(id); err != nil {
		s.abort(c, http.StatusNotFound, err)
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回错误响应
		s.logger.Warn("websocket upgrade failed", "id", id, "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()
	s.logger.Info("websocket connected", "id", id)

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Warn("websocket read", "id", id, "error", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			if err := s.writeError(conn, fmt.Errorf("%w: expected a JSON text message", matte.ErrInvalidParameter)); err != nil {
				return
			}
			continue
		}
		if err := s.handleMessage(conn, id, msg); err != nil {
			s.logger.Warn("websocket write", "id", id, "error", err)
			return
		}
	}
}

// handleMessage 只返回写连接失败的错误，处理错误发回给客户端
func (s *Server) handleMessage(conn *websocket.Conn, id string, msg []byte) error {
	u, err := s.store.Get(id)
	if err != nil {
		return s.writeError(conn, err)
	}
	var req ProcessRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return s.writeError(conn, fmt.Errorf("%w: %v", matte.ErrInvalidParameter, err))
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return s.writeError(conn, fmt.Errorf("%w: %v", matte.ErrInvalidParameter, err))
	}

	out, err := s.result(u, &req)
	if err != nil {
		return s.writeError(conn, err)
	}
	preview, err := util.PNGBytes(util.Thumbnail(out, s.cfg.Preview.Width, s.cfg.Preview.Height))
	if err != nil {
		return s.writeError(conn, fmt.Errorf("%w: %v", matte.ErrProcessingFailure, err))
	}
	full, err := util.PNGBytes(out)
	if err != nil {
		return s.writeError(conn, fmt.Errorf("%w: %v", matte.ErrProcessingFailure, err))
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, preview); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, full)
}

func (s *Server) result(u *Upload, req *ProcessRequest) (*image.NRGBA, error) {
	params, err := req.Params()
	if err != nil {
		return nil, err
	}
	return s.proc.ProcessHashed(u.Image, u.Hash, params)
}

func (s *Server) render(u *Upload, req *ProcessRequest, preview bool) ([]byte, error) {
	out, err := s.result(u, req)
	if err != nil {
		return nil, err
	}
	var img image.Image = out
	if preview {
		img = util.Thumbnail(out, s.cfg.Preview.Width, s.cfg.Preview.Height)
	}
	data, err := util.PNGBytes(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", matte.ErrProcessingFailure, err)
	}
	return data, nil
}

func (s *Server) writeError(conn *websocket.Conn, err error) error {
	return conn.WriteJSON(errorResponse{Error: err.Error(), Kind: kindOf(err)})
}

// fail 按错误类型选择状态码
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUploadNotFound):
		status = http.StatusNotFound
	case errors.Is(err, matte.ErrInvalidInput), errors.Is(err, matte.ErrInvalidParameter):
		status = http.StatusBadRequest
	}
	s.abort(c, status, err)
}

func (s *Server) abort(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error(), Kind: kindOf(err)})
}

func kindOf(err error) string {
	if errors.Is(err, ErrUploadNotFound) {
		return "not_found"
	}
	return matte.Kind(err)
}
