package middleware

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

const (
	VersionStatusActive     = "active"
	VersionStatusDeprecated = "deprecated"
	VersionStatusSunset     = "sunset"

	apiVersionKey = "api_version"
)

// APIVersion represents API version information
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"`
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// VersionMiddleware provides API versioning functionality
type VersionMiddleware struct {
	supportedVersions map[string]APIVersion
	defaultVersion    string
}

// NewVersionMiddleware creates a version middleware that knows the given
// versions. The first one is the default.
func NewVersionMiddleware(versions ...APIVersion) *VersionMiddleware {
	if len(versions) == 0 {
		versions = []APIVersion{{
			Version: "v1",
			Status:  VersionStatusActive,
			Message: "Current stable API version",
		}}
	}

	return &VersionMiddleware{
		supportedVersions: lo.KeyBy(versions, func(v APIVersion) string { return v.Version }),
		defaultVersion:    versions[0].Version,
	}
}

// VersionHeader adds version information to response headers
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Response().Header()
			header.Set("X-API-Version", version)

			if ver, exists := vm.supportedVersions[version]; exists {
				if ver.Status == VersionStatusDeprecated {
					header.Set("X-API-Deprecated", "true")
					if ver.SunsetDate != nil {
						header.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
						header.Set("Warning", "299 invoicer \"This API version is deprecated and will be removed on "+ver.SunsetDate.Format("2006-01-02")+"\"")
					}
				}
				if ver.Message != "" {
					header.Set("X-API-Message", ver.Message)
				}
			}

			return next(c)
		}
	}
}

// VersionRoute creates a version-specific route group
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string) *echo.Group {
	group := e.Group("/" + version)
	group.Use(vm.VersionHeader(version))
	return group
}

// APIVersionResolver rejects unknown version prefixes and records the
// resolved version on the context.
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := extractVersionFromPath(c.Request().URL.Path)
			if version == "" {
				c.Set(apiVersionKey, vm.defaultVersion)
				return next(c)
			}

			ver, supported := vm.supportedVersions[version]
			if !supported || ver.Status == VersionStatusSunset {
				return c.JSON(http.StatusNotFound, map[string]string{
					"error":              "Unsupported API version",
					"supported_versions": strings.Join(vm.getSupportedVersions(), ", "),
				})
			}
			c.Set(apiVersionKey, version)

			return next(c)
		}
	}
}

// extractVersionFromPath returns "vN" for paths like /vN or /vN/...
func extractVersionFromPath(path string) string {
	if !strings.HasPrefix(path, "/v") {
		return ""
	}

	segment := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(segment, '/'); i >= 0 {
		segment = segment[:i]
	}

	versionNum, err := strconv.Atoi(segment[1:])
	if err != nil || versionNum <= 0 {
		return ""
	}
	return "v" + strconv.Itoa(versionNum)
}

// getSupportedVersions returns the versions still being served, sorted
func (vm *VersionMiddleware) getSupportedVersions() []string {
	versions := lo.FilterMap(lo.Values(vm.supportedVersions), func(v APIVersion, _ int) (string, bool) {
		return v.Version, v.Status == VersionStatusActive || v.Status == VersionStatusDeprecated
	})
	sort.Strings(versions)
	return versions
}

// GetCurrentVersion returns the default API version
func (vm *VersionMiddleware) GetCurrentVersion() string {
	return vm.defaultVersion
}

// APIVersionFromContext returns the version resolved for the request
func APIVersionFromContext(c echo.Context) string {
	v, _ := c.Get(apiVersionKey).(string)
	return v
}
