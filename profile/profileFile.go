package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	lerror "lula/error"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// # ProfileFile
//
// reads a lula profile yml file and constructs a Profile struct.
//
// # Profile struct
//
// - contraindicators: substring terms; an action name containing one disqualifies its object.
//
// - modifiers: substring terms; they disqualify only when the action touched the object as "input".
//
// - supported_objects: per object type tag, the required / optional / mutually_exclusive
// property paths with optional exclusion patterns per path.
//
// - service: optional daemon section (inbox, destination, workers) consumed by lula serve.
type ProfileFile interface {
	GetObjectSchema(typeTag string) *ObjectSchema
	GetProfile() *Profile
	Path() string
	String() string
}

type profileFile struct {
	path    string
	profile *Profile
}

// Getter for ObjectSchema
func (p *profileFile) GetObjectSchema(typeTag string) *ObjectSchema {
	var (
		ret *ObjectSchema
		ok  bool
	)

	if ret, ok = p.profile.Objects[typeTag]; !ok {
		return nil
	}
	return ret
}

// Getter for Profile
func (p *profileFile) GetProfile() *Profile {
	return p.profile
}

func (p *profileFile) Path() string {
	return p.path
}

// Stringer for ProfileFile
func (p *profileFile) String() string {
	termStr := "profile: \n-------------Terms --------------\n"
	termStr += fmt.Sprintf("\tcontraindicators: %v\n", p.profile.Contraindicators)
	termStr += fmt.Sprintf("\tmodifiers: %v\n", p.profile.Modifiers)
	objectStr := "-------------Objects --------------\n"
	for _, typeTag := range p.profile.SupportedObjects() {
		schema := p.profile.Objects[typeTag]
		objectStr += fmt.Sprintf("%s:\n\trequired: %v\n\toptional: %v\n\tmutually_exclusive: %v\n", typeTag,
			specPaths(schema.Required),
			specPaths(schema.Optional),
			specPaths(schema.MutuallyExclusive))
	}
	serviceStr := "-------------Service --------------\n"
	if p.profile.Service != nil {
		serviceStr += fmt.Sprintf("\tinbox: %v\n\tdestination: %v\n\tworkers: %v",
			p.profile.Service.Inbox,
			p.profile.Service.Destination,
			p.profile.Service.Workers)
	} else {
		serviceStr += "\t(none)"
	}
	return termStr + objectStr + serviceStr
}

func specPaths(spec PropertySpec) []string {
	paths := make([]string, 0, len(spec))
	for path := range spec {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// SupportedObjects lists the configured object type tags, sorted.
func (p *Profile) SupportedObjects() []string {
	tags := make([]string, 0, len(p.Objects))
	for tag := range p.Objects {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func NewProfileFile(profileFilePath string) (ProfileFile, error) {
	var (
		wrapper ProfileWrapper
	)

	newProf := new(profileFile)
	newProf.path = profileFilePath

	// read profile file
	file, err := os.ReadFile(profileFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lerror.LulaGeneralError{
				Code:   lerror.InvalidArgumentError,
				Origin: err,
				Msg:    "error while Construct new profileFile",
			}
		}
		return nil, lerror.LulaGeneralError{
			Code:   lerror.SystemError,
			Origin: err,
			Msg:    "error while Construct new profileFile",
		}
	}

	// parse profile file
	err = yaml.Unmarshal(file, &wrapper)
	if err != nil {
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrInvalidProfile,
			Origin: err,
			Msg:    "error while Construct new profileFile",
		}
	}

	// compile wrapper into runtime profile
	newProf.profile, err = Compile(wrapper)
	if err != nil {
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrInvalidProfile,
			Origin: err,
			Msg:    "error while Construct new profileFile",
		}
	}

	return newProf, nil
}

// Compile validates a decoded wrapper and builds the immutable runtime
// Profile: property paths parsed, exclusion patterns compiled, full
// allow-list unions fixed. Every fault in the wrapper is reported, not just
// the first one.
func Compile(wrapper ProfileWrapper) (*Profile, error) {
	pathParser, err := NewParser()
	if err != nil {
		return nil, err
	}

	prof := new(Profile)
	prof.Version = wrapper.Version
	// get action terms from wrapper
	prof.Contraindicators, err = getActionTerms(wrapper.Contraindicators, "contraindicators")
	if err != nil {
		return nil, err
	}
	prof.Modifiers, err = getActionTerms(wrapper.Modifiers, "modifiers")
	if err != nil {
		return nil, err
	}
	// get object schemas from wrapper
	prof.Objects = make(map[string]*ObjectSchema, len(wrapper.Objects))
	for typeTag, objWrapper := range wrapper.Objects {
		if typeTag == "" {
			return nil, lerror.LulaProfileError{
				Code:   lerror.ErrUnsupportedObject,
				Msg:    "error in Compile.",
				Origin: fmt.Errorf("object type tag is empty"),
			}
		}
		schema, err := compileSchema(pathParser, typeTag, objWrapper)
		if err != nil {
			return nil, err
		}
		prof.Objects[typeTag] = schema
	}
	// get service from wrapper
	prof.Service, err = getService(wrapper.Service)
	if err != nil {
		return nil, err
	}

	return prof, nil
}

// getActionTerms verifies one substring term list. An empty term would match
// every action name, so it is rejected at load time.
func getActionTerms(terms []string, field string) ([]string, error) {
	out := make([]string, 0, len(terms))
	for at, term := range terms {
		if term == "" {
			return nil, lerror.LulaProfileError{
				Code:   lerror.ErrInvalidProfile,
				Msg:    "error in getActionTerms.",
				Origin: fmt.Errorf("%s[%d] is empty", field, at),
			}
		}
		out = append(out, term)
	}
	return out, nil
}

func compileSchema(p Parser, typeTag string, wrapper ObjectSchemaWrapper) (*ObjectSchema, error) {
	var errs error

	required, err := CompileSpec(p, wrapper.Required)
	errs = multierr.Append(errs, err)
	optional, err := CompileSpec(p, wrapper.Optional)
	errs = multierr.Append(errs, err)
	mutex, err := CompileSpec(p, wrapper.MutuallyExclusive)
	errs = multierr.Append(errs, err)
	if errs != nil {
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrInvalidProfile,
			Msg:    fmt.Sprintf("invalid schema for object [%s]", typeTag),
			Origin: errs,
		}
	}

	schema := &ObjectSchema{
		TypeTag:           typeTag,
		Required:          required,
		Optional:          optional,
		MutuallyExclusive: mutex,
	}
	// union for the final pruning pass. merge order fixes which spec wins a
	// path collision: required, then optional, then mutually_exclusive.
	schema.full = make(PropertySpec, len(required)+len(optional)+len(mutex))
	for path, pathSpec := range required {
		schema.full[path] = pathSpec
	}
	for path, pathSpec := range optional {
		schema.full[path] = pathSpec
	}
	for path, pathSpec := range mutex {
		schema.full[path] = pathSpec
	}
	return schema, nil
}

// CompileSpec parses and compiles one declared path->patterns map. All
// invalid paths, duplicate declarations and broken patterns are aggregated
// into one error so a profile author sees every fault at once.
func CompileSpec(p Parser, raw map[string][]string) (PropertySpec, error) {
	var errs error

	spec := make(PropertySpec, len(raw))
	canon := make(map[string]string, len(raw))

	for path, patterns := range raw {
		expr, err := p.PathParser().ParseString(path, path)
		if err != nil {
			errs = multierr.Append(errs, lerror.LulaProfileError{
				Code:   lerror.ErrPathSyntax,
				Msg:    fmt.Sprintf("cannot parse property path [%s]", path),
				Origin: err,
			})
			continue
		}
		segments := expr.Segments()
		// two declarations must not name the same node, with or without the
		// trailing wrapper segment.
		trimmed := strings.Join(TrimValueSegment(segments), "/")
		if prev, ok := canon[trimmed]; ok {
			errs = multierr.Append(errs, lerror.LulaProfileError{
				Code:   lerror.ErrDuplicatePath,
				Msg:    fmt.Sprintf("property path [%s] collides with [%s]", path, prev),
				Origin: fmt.Errorf("both resolve to node [%s]", trimmed),
			})
			continue
		}
		canon[trimmed] = path

		compiled := make([]*regexp.Regexp, 0, len(patterns))
		broken := false
		for _, pattern := range patterns {
			// exclusion patterns match at the start of the stringified value
			re, err := regexp.Compile("^(?:" + pattern + ")")
			if err != nil {
				errs = multierr.Append(errs, lerror.LulaProfileError{
					Code:   lerror.ErrInvalidPattern,
					Msg:    fmt.Sprintf("cannot compile exclusion pattern [%s] for path [%s]", pattern, path),
					Origin: err,
				})
				broken = true
				continue
			}
			compiled = append(compiled, re)
		}
		if broken {
			continue
		}
		spec[path] = &PathSpec{
			Path:     path,
			Segments: segments,
			Exclude:  compiled,
		}
	}

	if errs != nil {
		return nil, errs
	}
	return spec, nil
}

func isValidPath(path string) (bool, error) {
	dirPath := filepath.Dir(path)

	// check directory path exists.
	if _, err := os.Stat(dirPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return true, lerror.LulaGeneralError{
			Code:   lerror.SystemError,
			Msg:    "error in isValidPath.",
			Origin: err,
		}
	}
	return true, nil
}

// getService constructs ServiceInfo from ServiceWrapper & verifies the
// section. The section is optional; one-shot extraction runs without it.
func getService(wrapper *ServiceWrapper) (*ServiceInfo, error) {
	if wrapper == nil {
		return nil, nil
	}
	// null check
	if wrapper.Inbox == "" {
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrInvalidService,
			Msg:    "error in getService.",
			Origin: fmt.Errorf("inbox is empty"),
		}
	}
	if wrapper.Destination == "" {
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrInvalidService,
			Msg:    "error in getService.",
			Origin: fmt.Errorf("destination is empty"),
		}
	}
	// check inbox is an existing directory
	inboxInfo, err := os.Stat(wrapper.Inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lerror.LulaProfileError{
				Code:   lerror.ErrInvalidService,
				Msg:    "error in getService.",
				Origin: err,
			}
		}
		return nil, lerror.LulaGeneralError{
			Code:   lerror.SystemError,
			Msg:    "error in getService.",
			Origin: err,
		}
	}
	if !inboxInfo.IsDir() {
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrInvalidService,
			Msg:    "error in getService.",
			Origin: fmt.Errorf("inbox [%s] is not a directory", wrapper.Inbox),
		}
	}
	// check destination is valid path
	result, err := isValidPath(wrapper.Destination)
	if err != nil || !result {
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrInvalidService,
			Msg:    "error in getService.",
			Origin: fmt.Errorf("destination [%s] is not valid path", wrapper.Destination),
		}
	}
	if wrapper.Workers < 0 {
		return nil, lerror.LulaProfileError{
			Code:   lerror.ErrInvalidService,
			Msg:    "error in getService.",
			Origin: fmt.Errorf("workers must not be negative"),
		}
	}

	return &ServiceInfo{
		Inbox:       wrapper.Inbox,
		Destination: wrapper.Destination,
		Workers:     wrapper.Workers,
	}, nil
}
