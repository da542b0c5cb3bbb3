// Package compiler translates a single arithmetic expression into x86-64
// assembly that evaluates it on the machine stack.
//
// Pipeline: source → Lex → Parse → Generate → Target → assembly text
package compiler
