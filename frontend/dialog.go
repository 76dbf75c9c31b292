package frontend

import (
	"errors"

	"github.com/sqweek/dialog"
)

// ErrNoDirectory is returned when the user dismisses the directory picker
var ErrNoDirectory = errors.New("no games directory selected")

// PickGamesDir asks the user for the catalog directory
func PickGamesDir() (string, error) {
	path, err := dialog.Directory().
		Title("Select games folder").
		Browse()
	if errors.Is(err, dialog.ErrCancelled) {
		return "", ErrNoDirectory
	}
	return path, err
}

// ShowError displays a blocking error dialog
func ShowError(title, message string) {
	dialog.Message("%s", message).Title(title).Error()
}
