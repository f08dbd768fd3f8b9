package workbook

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	"report2csv/internal/biff"
	"report2csv/internal/ingest"
	"report2csv/internal/logging"
)

// DefaultPassword is the key Excel applies when a workbook is protected
// without a user-supplied password.
const DefaultPassword = "VelvetSweatshop"

// errLegacyContainer marks the one direct-open failure that triggers the
// decryption fallback.
var errLegacyContainer = errors.New("legacy compound container")

// Loader opens report workbooks.
type Loader struct {
	password string
	logger   *slog.Logger
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithPassword overrides the fallback decryption key.
func WithPassword(password string) LoaderOption {
	return func(l *Loader) { l.password = password }
}

// NewLoader constructs a Loader using the default key.
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		password: DefaultPassword,
		logger:   logging.NewComponentLogger(logger, "workbook"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open returns the workbook at path. Missing or unreadable files fail with
// ErrIO; anything neither path can open fails with ErrCorruptWorkbook.
func (l *Loader) Open(path string) (Workbook, error) {
	wb, err := l.openDirect(path)
	if err == nil {
		return wb, nil
	}
	if !errors.Is(err, errLegacyContainer) {
		return nil, err
	}
	l.logger.Debug("direct open rejected compound container; trying default key",
		logging.String(logging.FieldFile, path),
		logging.Error(err),
	)
	return l.openEncrypted(path)
}

func (l *Loader) openDirect(path string) (Workbook, error) {
	file, err := excelize.OpenFile(path, rawValues)
	if err == nil {
		return newXLSXWorkbook(file), nil
	}
	if isIOError(err) {
		return nil, ingest.Wrap(ingest.ErrIO, "workbook", "open", path, err)
	}

	sig, sniffErr := sniff(path)
	if sniffErr != nil {
		return nil, ingest.Wrap(ingest.ErrIO, "workbook", "open", path, sniffErr)
	}
	if sig != signatureCompound {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "open", path, err)
	}

	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, ingest.Wrap(ingest.ErrIO, "workbook", "read", path, readErr)
	}
	c, inspectErr := inspectContainer(raw)
	if inspectErr != nil {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "open", path, inspectErr)
	}
	if !c.legacyWorkbook() || c.biffEncrypted() {
		return nil, errLegacyContainer
	}
	wb, biffErr := openBIFF(raw)
	if biffErr != nil {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "open legacy", path, biffErr)
	}
	return wb, nil
}

func (l *Loader) openEncrypted(path string) (Workbook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ingest.Wrap(ingest.ErrIO, "workbook", "read", path, err)
	}
	c, err := inspectContainer(raw)
	if err != nil {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "inspect", path, err)
	}
	if c.legacyWorkbook() && c.biffEncrypted() {
		return l.openEncryptedBIFF(path, c.biff)
	}
	if !c.encryptedPackage() {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "decrypt", path+": compound container is not an encrypted workbook", nil)
	}

	plain, err := excelize.Decrypt(raw, &excelize.Options{Password: l.password})
	if err != nil {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "decrypt", path, err)
	}
	file, err := excelize.OpenReader(bytes.NewReader(plain), rawValues)
	if err != nil {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "reopen decrypted", path+": default key does not apply", err)
	}
	l.logDecrypted(path, "ooxml")
	return newXLSXWorkbook(file), nil
}

// openEncryptedBIFF removes FILEPASS record encryption from a legacy
// workbook stream and reads the result through a repacked container.
func (l *Loader) openEncryptedBIFF(path string, stream []byte) (Workbook, error) {
	plain, err := biff.Decrypt(stream, l.password)
	if err != nil {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "decrypt legacy", path, err)
	}
	packed, err := biff.Pack(streamWorkbook, plain)
	if err != nil {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "repack legacy", path, err)
	}
	wb, err := openBIFF(packed)
	if err != nil {
		return nil, ingest.Wrap(ingest.ErrCorruptWorkbook, "workbook", "reopen decrypted", path, err)
	}
	l.logDecrypted(path, "biff8")
	return wb, nil
}

func (l *Loader) logDecrypted(path, format string) {
	l.logger.Info("opened workbook through default-key decryption",
		logging.String(logging.FieldFile, path),
		logging.String(logging.FieldEventType, "workbook_decrypted"),
		logging.String("format", format),
	)
}

func isIOError(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrInvalid)
}
