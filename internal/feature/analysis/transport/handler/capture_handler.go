// Package handler はanalysisフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"chart_backend/internal/feature/analysis/domain/entity"
	"chart_backend/internal/feature/analysis/transport/http/dto"
	"chart_backend/internal/feature/analysis/usecase"
	signaldto "chart_backend/internal/feature/signals/transport/http/dto"
	jwtmw "chart_backend/internal/platform/jwt"
)

// AnalysisUsecase はキャプチャ分析のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type AnalysisUsecase interface {
	AnalyzeTimeframe(ctx context.Context, userID uint, captureID string, tf entity.Timeframe, imageData []byte, rules string) (*usecase.AnalysisResult, error)
	ListStructures(ctx context.Context, userID uint, tf entity.Timeframe, since time.Time, limit int) ([]entity.MarketStructure, error)
}

// CaptureHandler はキャプチャ分析のHTTPリクエストを処理します。
type CaptureHandler struct {
	uc AnalysisUsecase
}

// NewCaptureHandler はCaptureHandlerの新しいインスタンスを生成します。
func NewCaptureHandler(uc AnalysisUsecase) *CaptureHandler {
	return &CaptureHandler{uc: uc}
}

// Analyze はキャプチャサイクル1回分のチャート画像を受け取り分析します。
//
// エンドポイント: POST /v1/captures/:id/analyze
// Content-Type: multipart/form-data
// フィールド: 時間足名（4h/15m/3m/1m）ごとの画像ファイル（最大10MB）、
// 任意のrulesテキスト。一部の時間足だけ送信してもよく、
// 4つ揃った時点でシグナル評価が走ります。
func (h *CaptureHandler) Analyze(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	captureID := c.Param("id")
	if captureID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capture id is required"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		slog.Warn("multipart parse failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form is required"})
		return
	}
	rules := c.PostForm("rules")

	type upload struct {
		tf   entity.Timeframe
		data []byte
	}
	var uploads []upload
	for _, tf := range entity.RequiredTimeframes {
		files := form.File[string(tf)]
		if len(files) == 0 {
			continue
		}
		data, err := readUpload(files[0])
		if err != nil {
			slog.Error("failed to read chart image", "timeframe", tf, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read chart image"})
			return
		}
		uploads = append(uploads, upload{tf: tf, data: data})
	}
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one timeframe image is required"})
		return
	}

	// 時間足ごとの分析は互いに独立なので並行実行する。集約と評価の
	// 排他はユースケース側のアグリゲータが担う。
	var (
		mu      sync.Mutex
		results []*usecase.AnalysisResult
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	for _, up := range uploads {
		g.Go(func() error {
			res, err := h.uc.AnalyzeTimeframe(ctx, userID, captureID, up.tf, up.data, rules)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// 失敗した時間足は未分析のまま。サイクルは停滞し、同じキャプチャIDで
		// 再試行できる。
		slog.Error("chart analysis failed", "capture_id", captureID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "chart analysis failed"})
		return
	}

	resp := dto.CaptureAnalysisResp{CaptureID: captureID}
	for _, res := range results {
		resp.Results = append(resp.Results, dto.TimeframeResult{
			Timeframe:      string(res.Analysis.Timeframe),
			StructureCount: len(res.Analysis.Structures),
			TrendDirection: string(res.Analysis.TrendDirection),
		})
		if res.BundleComplete {
			resp.BundleComplete = true
		}
		if res.Signal != nil {
			s := signaldto.FromSignal(*res.Signal)
			resp.Signal = &s
		}
	}
	sort.Slice(resp.Results, func(i, j int) bool {
		return resp.Results[i].Timeframe < resp.Results[j].Timeframe
	})

	c.JSON(http.StatusOK, resp)
}

// ListStructures は保存済みマーケット構造を新しい順に返します。
//
// エンドポイント: GET /v1/structures?timeframe=15m&since=1700000000&limit=100
func (h *CaptureHandler) ListStructures(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tf := entity.Timeframe(c.Query("timeframe"))
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since parameter"})
			return
		}
		since = time.Unix(sec, 0)
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	structures, err := h.uc.ListStructures(c.Request.Context(), userID, tf, since, limit)
	if err != nil {
		slog.Error("failed to list structures", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list structures"})
		return
	}

	out := make([]dto.StructureResp, 0, len(structures))
	for _, s := range structures {
		out = append(out, dto.StructureResp{
			Kind:       string(s.Kind),
			Direction:  string(s.Direction),
			PriceLevel: s.PriceLevel,
			Confidence: s.Confidence,
			Timeframe:  string(s.Timeframe),
			X:          s.Coordinates.X,
			Y:          s.Coordinates.Y,
			Width:      s.Coordinates.Width,
			Height:     s.Coordinates.Height,
		})
	}
	c.JSON(http.StatusOK, out)
}

// readUpload はアップロードされたファイルを読み出します。
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close uploaded file", "error", err)
		}
	}()
	return io.ReadAll(f)
}
