// Command upload pushes one or more local files into a gallery or homepage
// section through the media API, picking the transfer strategy per file size.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"

	"github.com/malekbenamor02/AyachiProd/internal/config"
	"github.com/malekbenamor02/AyachiProd/internal/logging"
	"github.com/malekbenamor02/AyachiProd/internal/uploader"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the media API")
	token := flag.String("token", os.Getenv("ADMIN_API_TOKEN"), "admin bearer token")
	owner := flag.String("owner", "", "gallery or section id to upload into")
	kind := flag.String("kind", "gallery", "owner kind: gallery or section")
	alt := flag.String("alt", "", "alt text applied to every file")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	flag.Parse()

	files := flag.Args()
	if *owner == "" || len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: upload -owner <id> [-kind gallery|section] <file>...")
		os.Exit(2)
	}

	var mediaBase string
	switch *kind {
	case "gallery":
		mediaBase = fmt.Sprintf("%s/api/galleries/%s/media", *server, *owner)
	case "section":
		mediaBase = fmt.Sprintf("%s/api/sections/%s/work-images", *server, *owner)
	default:
		fmt.Fprintf(os.Stderr, "unknown kind %q\n", *kind)
		os.Exit(2)
	}

	uploadCfg, err := config.LoadUploadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logOpts := logging.DefaultOptions()
	logOpts.Level = zapcore.WarnLevel
	log := logging.New(logOpts)
	defer log.Sync()

	u := uploader.New(mediaBase, *token, uploadCfg.Upload, log)
	if !*quiet {
		u.SetProgress(func(pct int) {
			fmt.Printf("\r%3d%%", pct)
		})
	}

	res := u.UploadAll(context.Background(), files, *alt)
	if !*quiet {
		fmt.Println()
	}
	fmt.Printf("uploaded %d, failed %d\n", res.SuccessCount, res.FailedCount)
	if res.LastError != nil {
		fmt.Fprintf(os.Stderr, "last error: %v\n", res.LastError)
	}
	if res.SuccessCount == 0 && res.FailedCount > 0 {
		os.Exit(1)
	}
}
