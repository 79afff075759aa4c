// Package api provides the REST API server for octatools
package api

import (
	"archive/zip"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/dijksterhuis/octatools/pkg/chain"
	"github.com/dijksterhuis/octatools/pkg/debug"
	"github.com/dijksterhuis/octatools/pkg/midiexport"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
	"github.com/dijksterhuis/octatools/pkg/transcode"
)

// maxUpload bounds multipart bodies held in memory; a bank is ~620 KiB
const maxUpload = 32 << 20

// @title octatools API
// @version 1.0
// @description API for inspecting and generating Elektron Octatrack data files
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	return NewRouter().Run(fmt.Sprintf(":%d", port))
}

// NewRouter builds the API routes
func NewRouter() *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = maxUpload

	r.Use(corsMiddleware())

	r.GET("/health", healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.POST("/inspect", handleInspect)
		v1.GET("/defaults/:kind", handleDefaults)
		v1.POST("/attributes", handleAttributes)
		v1.POST("/midi", handleMIDI)
		v1.POST("/chain", handleChain)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "octatools",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns the Octatrack file types and document formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"file_types": octatrack.FileTypes,
		"documents":  []transcode.Format{transcode.FormatJSON, transcode.FormatYAML},
	})
}

// handleInspect godoc
// @Summary Inspect an Octatrack file
// @Description Upload a bank, arrangement, project or .ot file and receive it as a JSON or YAML document
// @Tags inspect
// @Accept multipart/form-data
// @Produce json
// @Produce application/x-yaml
// @Param file formData file true "Octatrack file"
// @Param type query string false "File type (default: detect from name then content)"
// @Param format query string false "Document format: json or yaml (default: json)"
// @Success 200 {object} object
// @Failure 400 {object} map[string]string
// @Router /api/v1/inspect [post]
func handleInspect(c *gin.Context) {
	data, header, ok := readUpload(c, "file")
	if !ok {
		return
	}
	format, err := transcode.ParseFormat(c.DefaultQuery("format", "json"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t := octatrack.DetectFileType(header.Filename)
	if name := c.Query("type"); name != "" {
		if t, err = octatrack.ParseFileType(name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	r, err := octatrack.Decode(t, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := transcode.Marshal(r, format)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	debug.Log("api", "inspected %s (%d bytes) as %s", header.Filename, len(data), format)
	c.Data(http.StatusOK, contentType(format), doc)
}

// handleDefaults godoc
// @Summary Download a default file
// @Description Returns the binary file the hardware writes for a new project
// @Tags create
// @Produce application/octet-stream
// @Param kind path string true "bank, arrangement, project or attributes"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/defaults/{kind} [get]
func handleDefaults(c *gin.Context) {
	t, err := octatrack.ParseFileType(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := octatrack.Default(t)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := r.Encode()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	attachment(c, defaultFileName(t), "application/octet-stream", data)
}

func defaultFileName(t octatrack.FileType) string {
	switch t {
	case octatrack.FileBank:
		return octatrack.BankFileName(1)
	case octatrack.FileArrangement:
		return octatrack.ArrangementFileName(1)
	case octatrack.FileProject:
		return octatrack.ProjectFileName
	}
	return "sample.ot"
}

// AttributesRequest describes an .ot file to generate
type AttributesRequest struct {
	Settings   *octatrack.SampleSettings `json:"settings"`
	Slices     []octatrack.Slice         `json:"slices"`
	Frames     int                       `json:"frames"`
	SampleRate int                       `json:"sample_rate"`
}

// handleAttributes godoc
// @Summary Generate an .ot file
// @Description Builds sample attributes from playback settings and a slice table
// @Tags create
// @Accept json
// @Produce application/octet-stream
// @Param request body AttributesRequest true "Settings and slices"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/attributes [post]
func handleAttributes(c *gin.Context) {
	var req AttributesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings := octatrack.DefaultSampleSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}

	attrs := octatrack.DefaultSampleAttributes()
	if err := attrs.Apply(settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := attrs.SetSlices(req.Slices); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Frames > 0 {
		rate := req.SampleRate
		if rate <= 0 {
			rate = 44100
		}
		attrs.SetTrim(0, uint32(req.Frames), octatrack.BarsX100(settings.Tempo, req.Frames, rate))
	}
	data, err := attrs.Encode()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	attachment(c, "sample.ot", "application/octet-stream", data)
}

// handleMIDI godoc
// @Summary Export a pattern to MIDI
// @Description Upload a bank file and receive one of its patterns as a Standard MIDI File
// @Tags convert
// @Accept multipart/form-data
// @Produce audio/midi
// @Param file formData file true "Bank file"
// @Param pattern query int false "Pattern 1-16 (default: 1)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/midi [post]
func handleMIDI(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("pattern", "1"))
	if err != nil || n < 1 || n > octatrack.PatternsPerBank {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pattern must be 1-16"})
		return
	}
	data, _, ok := readUpload(c, "file")
	if !ok {
		return
	}
	bank, err := octatrack.DecodeBank(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pattern := &bank.Patterns[n-1]
	part := &bank.Parts[int(pattern.PartAssignment)%octatrack.PartsPerBank]
	result, err := midiexport.NewExporter().Export(pattern, part)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	attachment(c, fmt.Sprintf("pattern%02d.mid", n), "audio/midi", result)
}

// handleChain godoc
// @Summary Build a sample chain
// @Description Upload WAV files and receive a zip of chained WAV and .ot files
// @Tags chain
// @Accept multipart/form-data
// @Produce application/zip
// @Param files formData file true "WAV files, in slice order"
// @Param name formData string false "Chain name (default: chain)"
// @Param bpm formData number false "Tempo (default: 120)"
// @Param normalize formData bool false "Normalize each input"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/chain [post]
func handleChain(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}
	ch := chain.Chain{
		Name:     c.DefaultPostForm("name", "chain"),
		Settings: octatrack.DefaultSampleSettings(),
	}
	if s := c.PostForm("bpm"); s != "" {
		if ch.Settings.Tempo, err = strconv.ParseFloat(s, 64); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bpm"})
			return
		}
	}
	ch.Processing.Normalize = c.PostForm("normalize") == "true"
	if strings.ContainsAny(ch.Name, `/\`) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chain name"})
		return
	}

	work, err := os.MkdirTemp("", "octatools-chain-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = os.RemoveAll(work) }()

	for i, fh := range form.File["files"] {
		path := filepath.Join(work, fmt.Sprintf("in-%03d.wav", i))
		if err := c.SaveUploadedFile(fh, path); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ch.Inputs = append(ch.Inputs, path)
	}
	outputs, err := chain.Build(ch, filepath.Join(work, "out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.zip", ch.Name))
	c.Header("Content-Type", "application/zip")
	c.Status(http.StatusOK)
	if err := writeZip(c.Writer, outputs); err != nil {
		debug.Log("api", "chain zip failed: %v", err)
		return
	}
	debug.Log("api", "built chain %s from %d inputs", ch.Name, len(ch.Inputs))
}

func writeZip(w io.Writer, outputs []chain.Output) error {
	z := zip.NewWriter(w)
	for _, o := range outputs {
		for _, path := range []string{o.AudioPath, o.AttributesPath} {
			if err := addZipFile(z, path); err != nil {
				return err
			}
		}
	}
	return z.Close()
}

func addZipFile(z *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	w, err := z.Create(filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

func readUpload(c *gin.Context, field string) ([]byte, *multipart.FileHeader, bool) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, nil, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, nil, false
	}
	return data, header, true
}

func attachment(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.Data(http.StatusOK, contentType, data)
}

func contentType(f transcode.Format) string {
	if f == transcode.FormatYAML {
		return "application/x-yaml"
	}
	return "application/json"
}
