package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// tesseract TSV columns:
// level page_num block_num par_num line_num word_num left top width height conf text
const (
	tsvColumns   = 12
	tsvWordLevel = 5
)

// ParseTSV decodes tesseract's TSV output into word tokens.
func ParseTSV(tsv []byte) ([]Token, error) {
	rows := strings.Split(strings.ReplaceAll(string(tsv), "\r\n", "\n"), "\n")
	var tokens []Token
	for i, row := range rows {
		if i == 0 || strings.TrimSpace(row) == "" {
			continue // header
		}
		cols := strings.Split(row, "\t")
		if len(cols) < tsvColumns {
			continue
		}
		ints := make([]int, 10)
		for c := 0; c < 10; c++ {
			v, err := strconv.Atoi(strings.TrimSpace(cols[c]))
			if err != nil {
				return nil, fmt.Errorf("tsv row %d column %d: %w", i, c, err)
			}
			ints[c] = v
		}
		if ints[0] != tsvWordLevel {
			continue
		}
		text := strings.TrimSpace(strings.Join(cols[11:], " "))
		if text == "" {
			continue
		}
		conf, _ := strconv.ParseFloat(strings.TrimSpace(cols[10]), 64)
		tokens = append(tokens, Token{
			Text:   text,
			Block:  ints[2],
			Par:    ints[3],
			Line:   ints[4],
			Word:   ints[5],
			Left:   ints[6],
			Top:    ints[7],
			Width:  ints[8],
			Height: ints[9],
			Conf:   conf,
		})
	}
	return tokens, nil
}

// CLIEngine runs the tesseract binary in TSV mode.
type CLIEngine struct {
	Tesseract   string
	Lang        string
	TessdataDir string
	Runner      Runner
}

func NewCLIEngine(cfg Config, runner Runner) *CLIEngine {
	return &CLIEngine{
		Tesseract:   cfg.Tesseract,
		Lang:        cfg.TesseractLang,
		TessdataDir: cfg.TessdataDir,
		Runner:      runner,
	}
}

func (c *CLIEngine) Recognize(ctx context.Context, imagePath string, opts RecognizeOptions) ([]Token, error) {
	// tesseract <file> stdout -l <lang> [--psm N] [-c whitelist] tsv
	args := []string{imagePath, "stdout", "-l", c.Lang}
	if c.TessdataDir != "" {
		args = append(args, "--tessdata-dir", c.TessdataDir)
	}
	if opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PSM))
	}
	if opts.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+opts.Whitelist)
	}
	args = append(args, "tsv")

	out, errb, err := c.Runner.Run(ctx, c.Tesseract, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return ParseTSV(out)
}
