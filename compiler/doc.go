/*

Process of compilation

Program Text ->
	lex ->
Tokens (token) ->
	parse ->
Abstract Syntax Tree (ast) ->
	resolve (front) ->
Intermediate Representation (ir) ->
	lower (back) ->
LLVM Assembly Text (.ll)

Imported modules go through lex, parse and resolve only.
Their exported Surface is bound into the importing module as external declarations.

*/
package compiler
