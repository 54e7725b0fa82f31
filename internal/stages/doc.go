// Package stages implements the four pipeline collaborators behind the
// executor's stage contract.
//
// Each adapter shells out to one external tool with a bounded timeout and
// classifies the result into the tagged outcome the executor expects:
//
//   - Compiler runs latexmk (LaTeX to PDF); failures are recoverable and the
//     pipeline continues without the compiled artifact.
//   - MarkupConverter runs pandoc (TeX to HTML with MathML); fatal.
//   - PostProcessor runs tidy over the generated HTML and materializes image
//     assets into the output tree, converting vector sources via dvisvgm;
//     fatal.
//   - Validator checks the output exists and is non-empty and derives the
//     quality score; fatal.
//
// Adapters never mutate job state; diagnostics travel back through outcome
// metadata only.
package stages
