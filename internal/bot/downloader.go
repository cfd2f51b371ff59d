package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

// FileFetcher is the part of *tele.Bot used to download files.
type FileFetcher interface {
	Download(file *tele.File, localFilename string) error
}

// Downloader saves photos as <dir>/<user id>/<uuid>.jpg.
type Downloader struct {
	bot FileFetcher
	dir string
}

// NewDownloader returns a Downloader writing below dir.
func NewDownloader(bot FileFetcher, dir string) *Downloader {
	return &Downloader{bot: bot, dir: dir}
}

// Download fetches the file behind assetRef and returns the local path.
func (d *Downloader) Download(ctx context.Context, userID int64, assetRef string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	userDir := filepath.Join(d.dir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", fmt.Errorf("bot: create photo dir: %w", err)
	}
	path := filepath.Join(userDir, uuid.NewString()+".jpg")
	if err := d.bot.Download(&tele.File{FileID: assetRef}, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("bot: download %s: %w", assetRef, err)
	}
	return path, nil
}
