// Package toolhelp enumerates Windows processes through a Toolhelp32
// snapshot and queries them with limited-information handles.
package toolhelp
