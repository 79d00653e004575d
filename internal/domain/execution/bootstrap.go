package execution

import "strings"

// UnitName is the file name a unit reports in tracebacks, wherever the
// runner actually stored it.
const UnitName = "unit.py"

// ExitCompileError is the exit status of the bootstrap when the unit does
// not compile.
const ExitCompileError = 86

const compileErrorMarker = "codelevels: unit does not compile\n"

// Bootstrap is run with the interpreter's -c flag and the unit path as its
// only argument. It compiles the unit under UnitName before running any of
// it, so a syntax error is reported apart from failing tests.
const Bootstrap = `import sys
with open(sys.argv[1], encoding="utf-8") as unit_file:
    unit_source = unit_file.read()
try:
    unit_code = compile(unit_source, "unit.py", "exec")
except (SyntaxError, ValueError) as exc:
    import traceback
    sys.stderr.write("codelevels: unit does not compile\n")
    sys.stderr.write("".join(traceback.format_exception_only(type(exc), exc)))
    sys.exit(86)
sys.argv = ["unit.py"]
exec(unit_code, {"__name__": "__main__", "__file__": "unit.py", "__builtins__": __builtins__})
`

// CompileFailure reports whether a finished run was stopped by the bootstrap
// compile step. It returns stderr with the bootstrap's marker removed.
func CompileFailure(exitCode int64, stderr string) (string, bool) {
	if exitCode != ExitCompileError {
		return stderr, false
	}
	before, after, found := strings.Cut(stderr, compileErrorMarker)
	if !found {
		return stderr, false
	}
	return before + after, true
}
