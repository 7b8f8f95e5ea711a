package server

import (
	"context"
	"crypto/tls"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/racedash/log"
)

const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Chmod

// certs serves the key pair of certFile and keyFile and reloads it when
// one of the files changes.
type certs struct {
	certFile string
	keyFile  string
	log      *log.Logger
	mu       sync.RWMutex
	cert     *tls.Certificate
}

// newTLSConfig returns nil if the key pair cannot be loaded.
func newTLSConfig(ctx context.Context, certFile, keyFile string) *tls.Config {
	c := &certs{
		certFile: certFile,
		keyFile:  keyFile,
		log:      log.Default().Named("server.certs"),
	}
	if err := c.loadCert(); err != nil {
		c.log.Error("could not load TLS key pair", log.ErrorField(err))
		return nil
	}
	if watcher, err := c.newWatcher(); err != nil {
		c.log.Error("could not watch TLS key pair, reload disabled", log.ErrorField(err))
	} else {
		go c.watchAndReloadCerts(ctx, watcher)
	}
	return &tls.Config{
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return c.cert, nil
		},
		MinVersion: tls.VersionTLS13,
	}
}

// newWatcher watches the directories of the key pair. Files replaced by a
// rename show up as Create events there.
func (c *certs) newWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs := map[string]struct{}{
		filepath.Dir(c.certFile): {},
		filepath.Dir(c.keyFile):  {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return watcher, nil
}

func (c *certs) isKeyPairFile(name string) bool {
	name = filepath.Clean(name)
	return name == filepath.Clean(c.certFile) || name == filepath.Clean(c.keyFile)
}

func (c *certs) watchAndReloadCerts(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			c.log.Info("context done, stopping cert reload")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&reloadOps == 0 || !c.isKeyPairFile(event.Name) {
				continue
			}
			c.log.Info("cert file changed, reloading cert",
				log.String("file", event.Name), log.String("op", event.Op.String()))
			if err := c.loadCert(); err != nil {
				c.log.Warn("could not reload TLS key pair", log.ErrorField(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.log.Error("watcher error", log.ErrorField(err))
		}
	}
}

// loadCert keeps the previous certificate if the files cannot be read.
func (c *certs) loadCert() error {
	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cert = &cert
	return nil
}
