package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aquilax/sitetree/logger"
	"gopkg.in/yaml.v3"
)

// Translations maps an English message to its translation.
type Translations map[string]string

type Language struct {
	found bool
	tr    Translations
}

// TransPool loads {basePath}/{lang}.yaml on first use and keeps it.
type TransPool struct {
	basePath  string
	mu        sync.Mutex
	languages map[string]*Language
}

func NewTransPool(basePath string) *TransPool {
	return &TransPool{
		basePath:  basePath,
		languages: make(map[string]*Language),
	}
}

func NewLanguage(lang string) *Language {
	return &Language{
		found: false,
		tr:    make(Translations),
	}
}

func (tp *TransPool) Get(lang string) *Language {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	l, ok := tp.languages[lang]
	if !ok {
		l = tp.load(lang)
		tp.languages[lang] = l
	}
	return l
}

func (tp *TransPool) load(lang string) *Language {
	l := NewLanguage(lang)
	if tp.basePath == "" || lang == "" {
		return l
	}
	data, err := os.ReadFile(filepath.Join(tp.basePath, filepath.Base(lang)+".yaml"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("cannot read translations", slog.String("language", lang), slog.String("error", err.Error()))
		}
		return l
	}
	if err := yaml.Unmarshal(data, &l.tr); err != nil {
		logger.Warn("cannot parse translations", slog.String("language", lang), slog.String("error", err.Error()))
		return l
	}
	l.found = true
	return l
}

func (l *Language) Lang(text string) string {
	if l == nil || !l.found {
		// Language was not found, return the string
		return text
	}
	res, ok := l.tr[text]
	if !ok {
		// Key was not found
		return text
	}
	// Return translated string
	return res
}
