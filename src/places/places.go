package places

import (
	"RainMatrix/src/types"
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrPlacesMissing = errors.New("places file not found")

// Read parses a places file with one "Label, lat, lon" entry per line.
// Blank lines and lines starting with '#' are skipped.
func Read(path string) ([]types.Place, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrPlacesMissing, path)
		}
		return nil, errors.Wrap(err, "open places file")
	}
	defer file.Close()

	var places []types.Place
	scanner := bufio.NewScanner(file)
	lineno := 0
	for scanner.Scan() {
		lineno++
		s := strings.TrimSpace(scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}

		place, err := parseLine(s)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid format in %s line %d", path, lineno)
		}
		places = append(places, place)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read places file")
	}

	return places, nil
}

func parseLine(s string) (types.Place, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return types.Place{}, errors.New("expected: Label, lat, lon")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return types.Place{}, errors.Errorf("bad latitude %q", parts[1])
	}
	lon, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return types.Place{}, errors.Errorf("bad longitude %q", parts[2])
	}

	return types.Place{
		Label:    parts[0],
		Query:    parts[0],
		Location: types.GeoPoint{Lat: lat, Lon: lon},
	}, nil
}

// Signature changes whenever the file is edited: "<mtime>:<size>".
func Signature(path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrap(ErrPlacesMissing, path)
		}
		return "", errors.Wrap(err, "stat places file")
	}
	return fmt.Sprintf("%d:%d", st.ModTime().Unix(), st.Size()), nil
}

// LabelFromQuery returns the text before the first comma.
func LabelFromQuery(q string) string {
	return strings.TrimSpace(strings.SplitN(q, ",", 2)[0])
}
