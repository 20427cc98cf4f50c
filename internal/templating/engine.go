// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package templating

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"

	"github.com/nikolalohinski/gonja/v2/builtins"
	"github.com/nikolalohinski/gonja/v2/config"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/nikolalohinski/gonja/v2/loaders"
	"github.com/nikolalohinski/gonja/v2/nodes"
	"github.com/nikolalohinski/gonja/v2/parser"
	"github.com/nikolalohinski/gonja/v2/tokens"
)

// FilterFunc is a custom filter function registered with the template engine.
// It receives the input value and optional arguments and returns the
// filtered value or an error.
type FilterFunc func(in interface{}, args ...interface{}) (interface{}, error)

// GlobalFunc is a custom global function callable from templates.
type GlobalFunc func(args ...interface{}) (interface{}, error)

// TemplateEngine compiles and renders every fragment discovered under a
// searchpath root. All fragments are pre-compiled at New() so syntax errors
// surface before any rendering begins.
type TemplateEngine struct {
	engineType        EngineType
	root              string
	rawTemplates      map[string]string
	compiledTemplates map[string]*exec.Template
	postProcessors    map[string][]PostProcessor
}

// New creates a TemplateEngine rooted at root, compiling every template in
// templates (name -> content, names are root-relative paths). Custom filters
// and functions are merged on top of the normative filter/function table;
// pass nil for none.
func New(root string, templates map[string]string, customFilters map[string]FilterFunc, customFunctions map[string]GlobalFunc, postProcessorConfigs map[string][]PostProcessorConfig) (*TemplateEngine, error) {
	loader, err := NewFileLoader(root)
	if err != nil {
		return nil, err
	}
	return newEngine(loader, loader.Root(), templates, customFilters, customFunctions, postProcessorConfigs)
}

// NewWithLoader creates a TemplateEngine using a caller-supplied loader
// (e.g. an OverlayLoader) instead of a single FileLoader. dirFuncsRoot is
// the root the directory functions (list_files, raw_import, ...) resolve
// against; it need not be the same root the loader reads template content
// from, which is how the Document Builder renders library fragments while
// keeping the project root as the effective searchpath.
func NewWithLoader(loader loaders.Loader, dirFuncsRoot string, templates map[string]string, customFilters map[string]FilterFunc, customFunctions map[string]GlobalFunc, postProcessorConfigs map[string][]PostProcessorConfig) (*TemplateEngine, error) {
	return newEngine(loader, dirFuncsRoot, templates, customFilters, customFunctions, postProcessorConfigs)
}

func newEngine(loader loaders.Loader, dirFuncsRoot string, templates map[string]string, customFilters map[string]FilterFunc, customFunctions map[string]GlobalFunc, postProcessorConfigs map[string][]PostProcessorConfig) (*TemplateEngine, error) {
	engine := &TemplateEngine{
		engineType:        EngineTypeGonja,
		root:              dirFuncsRoot,
		rawTemplates:      make(map[string]string, len(templates)),
		compiledTemplates: make(map[string]*exec.Template, len(templates)),
		postProcessors:    make(map[string][]PostProcessor),
	}

	cfg := createGonjaConfig()
	environment := buildEnvironment(dirFuncsRoot, customFilters, customFunctions)

	if err := compileTemplates(engine, templates, cfg, loader, environment); err != nil {
		return nil, err
	}

	if err := buildPostProcessors(engine, postProcessorConfigs); err != nil {
		return nil, err
	}

	return engine, nil
}

// NewFromSearchpath discovers every file under root (matching nameFilter, or
// all files if nameFilter is nil) and compiles it as a template named by its
// root-relative slash-separated path.
func NewFromSearchpath(root string, nameFilter func(relPath string) bool, customFilters map[string]FilterFunc, customFunctions map[string]GlobalFunc, postProcessorConfigs map[string][]PostProcessorConfig) (*TemplateEngine, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve searchpath root %q: %w", root, err)
	}

	templates := make(map[string]string)
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if nameFilter != nil && !nameFilter(rel) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		templates[rel] = string(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk searchpath root %q: %w", root, err)
	}

	return New(absRoot, templates, customFilters, customFunctions, postProcessorConfigs)
}

// createGonjaConfig creates the Gonja configuration with whitespace control
// enabled, matching the fragment language's "forbid implicit cwd behavior,
// keep indentation predictable" philosophy. StrictUndefined is on: every
// reference to an unresolved variable (including Environment lookups) is a
// render error instead of silently expanding to an empty string.
func createGonjaConfig() *config.Config {
	return &config.Config{
		BlockStartString:    "{%",
		BlockEndString:      "%}",
		VariableStartString: "{{",
		VariableEndString:   "}}",
		CommentStartString:  "{#",
		CommentEndString:    "#}",
		AutoEscape:          false,
		StrictUndefined:     true,
		TrimBlocks:          true,
		LeftStripBlocks:     true,
	}
}

// buildFilters creates a filter set with builtin, normative, and custom filters.
func buildFilters(customFilters map[string]FilterFunc) *exec.FilterSet {
	// Clone builtin filters to avoid mutating global state in-place, which
	// would race when multiple engines are built concurrently.
	filters := cloneFilterSet(builtins.Filters)

	normativeMap := make(map[string]exec.FilterFunction)
	for name, f := range normativeFilters() {
		normativeMap[name] = wrapCustomFilter(f)
	}
	filters = filters.Update(exec.NewFilterSet(normativeMap))

	if len(customFilters) > 0 {
		customMap := make(map[string]exec.FilterFunction, len(customFilters))
		for name, f := range customFilters {
			customMap[name] = wrapCustomFilter(f)
		}
		filters = filters.Update(exec.NewFilterSet(customMap))
	}

	return filters
}

// buildGlobalFunctions creates a context with builtin, directory, and custom
// global functions.
func buildGlobalFunctions(root string, customFunctions map[string]GlobalFunc) *exec.Context {
	globalFunctions := builtins.GlobalFunctions

	failMap := map[string]interface{}{
		"fail": func(args ...interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("fail() requires exactly one argument (error message)")
			}
			message, ok := args[0].(string)
			if !ok {
				message = fmt.Sprint(args[0])
			}
			return nil, fmt.Errorf("%s", message)
		},
	}
	globalFunctions = globalFunctions.Update(exec.NewContext(failMap))

	directoryMap := make(map[string]interface{})
	for name, f := range directoryFunctions(root) {
		directoryMap[name] = wrapGlobalFunction(f)
	}
	globalFunctions = globalFunctions.Update(exec.NewContext(directoryMap))

	if len(customFunctions) > 0 {
		customMap := make(map[string]interface{}, len(customFunctions))
		for name, f := range customFunctions {
			customMap[name] = wrapGlobalFunction(f)
		}
		globalFunctions = globalFunctions.Update(exec.NewContext(customMap))
	}

	return globalFunctions
}

// buildEnvironment creates a Gonja environment with all extensions:
// normative/custom filters, a value-comparing "in" test (fixing Gonja's
// default identity-based comparison), and the compute_once control
// structure used by multi-include fragments to avoid redundant work.
func buildEnvironment(root string, customFilters map[string]FilterFunc, customFunctions map[string]GlobalFunc) *exec.Environment {
	filters := buildFilters(customFilters)
	globalFunctions := buildGlobalFunctions(root, customFunctions)

	testMap := map[string]exec.TestFunction{
		"in": testInFixed,
	}
	tests := builtins.Tests.Update(exec.NewTestSet(testMap))

	customControlStructures := map[string]parser.ControlStructureParser{
		"compute_once": computeOnceParser,
	}
	controlStructures := builtins.ControlStructures.Update(exec.NewControlStructureSet(customControlStructures))

	return &exec.Environment{
		Filters:           filters,
		Tests:             tests,
		ControlStructures: controlStructures,
		Methods:           builtins.Methods,
		Context:           globalFunctions,
	}
}

// testInFixed implements a fixed "in" test that compares string values for
// lists instead of Go's interface{} identity comparison. Each template
// expression with the ~ concatenation operator creates a new *exec.Value,
// so identity comparison spuriously fails even for identical strings.
func testInFixed(ctx *exec.Context, in *exec.Value, params *exec.VarArgs) (bool, error) {
	seq := params.First()

	resolved := seq.Val
	if resolved.IsValid() && resolved.Kind() == reflect.Ptr {
		resolved = resolved.Elem()
	}

	if resolved.Kind() == reflect.Slice || resolved.Kind() == reflect.Array {
		inStr := in.String()
		for i := 0; i < resolved.Len(); i++ {
			item := exec.ToValue(resolved.Index(i))
			if inStr == item.String() {
				return true, nil
			}
		}
		return false, nil
	}

	return seq.Contains(in), nil
}

// compileTemplates compiles all templates and stores them on the engine.
func compileTemplates(engine *TemplateEngine, templates map[string]string, cfg *config.Config, loader loaders.Loader, environment *exec.Environment) error {
	for name, content := range templates {
		engine.rawTemplates[name] = content

		compiled, err := exec.NewTemplate(name, cfg, loader, environment)
		if err != nil {
			return NewCompilationError(name, content, err)
		}

		engine.compiledTemplates[name] = compiled
	}
	return nil
}

// buildPostProcessors creates post-processors from configuration.
func buildPostProcessors(engine *TemplateEngine, postProcessorConfigs map[string][]PostProcessorConfig) error {
	for templateName, configs := range postProcessorConfigs {
		processors := make([]PostProcessor, 0, len(configs))
		for _, cfg := range configs {
			processor, err := NewPostProcessor(cfg)
			if err != nil {
				return fmt.Errorf("failed to create post-processor for template %q: %w", templateName, err)
			}
			processors = append(processors, processor)
		}
		engine.postProcessors[templateName] = processors
	}
	return nil
}

// Render executes the named template against context and applies any
// configured post-processors. Compilation failures were already surfaced at
// New(); failures here are always rendering failures.
func (e *TemplateEngine) Render(templateName string, context map[string]interface{}) (string, error) {
	template, exists := e.compiledTemplates[templateName]
	if !exists {
		return "", e.templateNotFoundError(templateName)
	}

	if context == nil {
		context = make(map[string]interface{})
	}
	ctx := exec.NewContext(context)

	output, err := template.ExecuteToString(ctx)
	if err != nil {
		return "", e.renderError(templateName, err)
	}

	output, err = e.applyPostProcessors(templateName, output)
	if err != nil {
		return "", err
	}

	return output, nil
}

// RenderToError renders templateName and, on failure, returns a
// *TemplateError carrying the best-effort {source path, line, message}
// triple extracted from the underlying engine error.
func (e *TemplateEngine) RenderToError(templateName string, context map[string]interface{}) (string, error) {
	output, err := e.Render(templateName, context)
	if err == nil {
		return output, nil
	}
	return "", FormatTemplateError(templateName, e.rawTemplates[templateName], err)
}

func (e *TemplateEngine) templateNotFoundError(templateName string) error {
	availableNames := make([]string, 0, len(e.compiledTemplates))
	for name := range e.compiledTemplates {
		availableNames = append(availableNames, name)
	}
	return NewTemplateNotFoundError(templateName, availableNames)
}

func (e *TemplateEngine) renderError(templateName string, cause error) error {
	return NewRenderError(templateName, cause)
}

func (e *TemplateEngine) applyPostProcessors(templateName, output string) (string, error) {
	processors, exists := e.postProcessors[templateName]
	if !exists {
		return output, nil
	}

	var err error
	for _, processor := range processors {
		output, err = processor.Process(output)
		if err != nil {
			return "", fmt.Errorf("post-processor failed for template %q: %w", templateName, err)
		}
	}

	return output, nil
}

// EngineType returns the template engine type used by this instance.
func (e *TemplateEngine) EngineType() EngineType {
	return e.engineType
}

// TemplateNames returns the names of all available templates.
func (e *TemplateEngine) TemplateNames() []string {
	names := make([]string, 0, len(e.rawTemplates))
	for name := range e.rawTemplates {
		names = append(names, name)
	}
	return names
}

// HasTemplate returns true if a template with the given name exists.
func (e *TemplateEngine) HasTemplate(templateName string) bool {
	_, exists := e.compiledTemplates[templateName]
	return exists
}

// GetRawTemplate returns the original (uncompiled) template string.
func (e *TemplateEngine) GetRawTemplate(templateName string) (string, error) {
	template, exists := e.rawTemplates[templateName]
	if !exists {
		availableNames := make([]string, 0, len(e.rawTemplates))
		for name := range e.rawTemplates {
			availableNames = append(availableNames, name)
		}
		return "", NewTemplateNotFoundError(templateName, availableNames)
	}
	return template, nil
}

// TemplateCount returns the number of templates in this engine.
func (e *TemplateEngine) TemplateCount() int {
	return len(e.compiledTemplates)
}

// String returns a string representation of the engine for debugging.
func (e *TemplateEngine) String() string {
	return fmt.Sprintf("TemplateEngine{type=%s, templates=%d}", e.engineType, e.TemplateCount())
}

// cloneFilterSet creates a new FilterSet populated from original, so
// updating it in place never mutates Gonja's shared builtin set.
func cloneFilterSet(original *exec.FilterSet) *exec.FilterSet {
	cloned := exec.NewFilterSet(make(map[string]exec.FilterFunction))
	cloned.Update(original)
	return cloned
}

// wrapCustomFilter adapts a FilterFunc into Gonja's FilterFunction signature.
func wrapCustomFilter(customFilter FilterFunc) exec.FilterFunction {
	return func(e *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
		if in.IsError() {
			return in
		}

		inputValue := in.Interface()

		var args []interface{}
		if params != nil && len(params.Args) > 0 {
			for _, arg := range params.Args {
				args = append(args, arg.Interface())
			}
		}
		if params != nil && len(params.KwArgs) > 0 {
			kwargs := make(map[string]interface{}, len(params.KwArgs))
			for k, v := range params.KwArgs {
				kwargs[k] = v.Interface()
			}
			args = append(args, kwargs)
		}

		result, err := customFilter(inputValue, args...)
		if err != nil {
			return exec.AsValue(err)
		}
		return exec.AsValue(result)
	}
}

// wrapGlobalFunction adapts a GlobalFunc into a Gonja-callable function.
func wrapGlobalFunction(customFunc GlobalFunc) func(_ *exec.Evaluator, params *exec.VarArgs) *exec.Value {
	return func(_ *exec.Evaluator, params *exec.VarArgs) *exec.Value {
		var args []interface{}
		if params != nil && len(params.Args) > 0 {
			for _, arg := range params.Args {
				args = append(args, arg.Interface())
			}
		}

		result, err := customFunc(args...)
		if err != nil {
			return exec.AsValue(exec.ErrInvalidCall(err))
		}
		return exec.AsValue(result)
	}
}

// ============================================================================
// Custom Gonja tag: compute_once
// ============================================================================

// ComputeOnceControlStructure executes a template body only once per render,
// caching the fact that it ran by setting a marker in the execution context.
// This matters for fragments that `{% import %}` the same macro-bearing
// template from several places: without compute_once, an expensive analysis
// macro would re-run on every import site.
//
// Usage:
//
//	{%- set analysis = namespace(done=false) %}
//	{%- compute_once analysis %}
//	  {%- set analysis.done = true %}
//	{% endcompute_once %}
type ComputeOnceControlStructure struct {
	location *tokens.Token
	varName  string
	wrapper  *nodes.Wrapper
}

// Position returns the token position for error reporting.
func (cs *ComputeOnceControlStructure) Position() *tokens.Token {
	return cs.location
}

// String returns a string representation for debugging.
func (cs *ComputeOnceControlStructure) String() string {
	t := cs.Position()
	return fmt.Sprintf("ComputeOnceControlStructure(var=%s, Line=%d Col=%d)", cs.varName, t.Line, t.Col)
}

// Execute implements the compute_once logic.
func (cs *ComputeOnceControlStructure) Execute(r *exec.Renderer, tag *nodes.ControlStructureBlock) error {
	markerName := "_computed_" + cs.varName

	if r.Environment.Context.Has(markerName) {
		return nil
	}

	if _, exists := r.Environment.Context.Get(cs.varName); !exists {
		return fmt.Errorf("compute_once: variable '%s' must be created before compute_once block", cs.varName)
	}

	if err := r.ExecuteWrapper(cs.wrapper); err != nil {
		return err
	}

	r.Environment.Context.Set(markerName, true)
	return nil
}

// computeOnceParser parses `{% compute_once variable_name %}`.
func computeOnceParser(p, args *parser.Parser) (nodes.ControlStructure, error) {
	cs := &ComputeOnceControlStructure{location: p.Current()}

	varToken := args.Match(tokens.Name)
	if varToken == nil {
		return nil, args.Error("compute_once requires variable name", nil)
	}
	cs.varName = varToken.Val

	if !args.Stream().End() {
		return nil, args.Error("compute_once takes only variable name, no additional arguments", nil)
	}

	wrapper, _, err := p.WrapUntil("endcompute_once")
	if err != nil {
		return nil, err
	}
	cs.wrapper = wrapper

	return cs, nil
}
