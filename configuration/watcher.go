// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2024 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bitmark-inc/agenthub/agent"
	"github.com/bitmark-inc/agenthub/fault"
	"github.com/bitmark-inc/agenthub/util"
	"github.com/bitmark-inc/logger"
)

// ReloadFunc - receives the agent prices after each change
type ReloadFunc func(pricing map[agent.Kind]agent.Pricing) error

// Watcher - reload agent prices when the configuration file changes
//
// the directory is watched rather than the file so editors that
// replace the file are still seen
type Watcher struct {
	log      *logger.L
	filePath string
	watcher  *fsnotify.Watcher
	reload   ReloadFunc
}

// NewWatcher - watch a configuration file
func NewWatcher(log *logger.L, fileName string, reload ReloadFunc) (*Watcher, error) {
	filePath, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, err
	}
	if !util.EnsureFileExists(filePath) {
		return nil, fault.ConfigurationFileNotExists
	}

	w, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, err
	}
	if err := w.Add(filepath.Dir(filePath)); nil != err {
		w.Close()
		return nil, err
	}

	return &Watcher{
		log:      log,
		filePath: filePath,
		watcher:  w,
		reload:   reload,
	}, nil
}

// Run - background process
func (w *Watcher) Run(args interface{}, shutdown <-chan struct{}) {
	log := w.log
	log.Infof("watching: %s", w.filePath)

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case event, ok := <-w.watcher.Events:
			if !ok {
				break loop
			}
			if filepath.Clean(event.Name) != w.filePath {
				continue loop
			}
			if isRemove(event) {
				log.Warnf("file removed: %s", w.filePath)
				continue loop
			}
			if isChange(event) {
				log.Infof("file event: %v", event)
				w.apply()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				break loop
			}
			log.Errorf("watcher error: %s", err)
		}
	}

	w.watcher.Close()
	log.Info("shutting down…")
	log.Flush()
}

// a bad edit is logged and the running prices are kept
func (w *Watcher) apply() {
	options := defaults()
	if err := ParseConfigurationFile(w.filePath, options); nil != err {
		w.log.Errorf("reload parse error: %s", err)
		return
	}
	pricing, err := options.Pricing()
	if nil != err {
		w.log.Errorf("reload pricing error: %s", err)
		return
	}
	if err := w.reload(pricing); nil != err {
		w.log.Errorf("reload rejected: %s", err)
		return
	}
	w.log.Info("agent pricing reloaded")
}

func isRemove(event fsnotify.Event) bool {
	return event.Op&fsnotify.Remove == fsnotify.Remove ||
		event.Op&fsnotify.Rename == fsnotify.Rename
}

func isChange(event fsnotify.Event) bool {
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Chmod == fsnotify.Chmod
}
