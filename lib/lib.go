/*package lib contains utility functions shared by the aosoa subpackages and
by standalone tools built on top of them. Almost all of the heavy lifting is
done by lib/'s subpackages: lib/schema describes particle fields, lib/aosoa
stores them, lib/binsort reorders them, and lib/snapshot writes them to disk.
*/
package lib

var (
	// Version is the version of the software. This can potentially be used
	// to differentiate between breaking changes to the snapshot format.
	Version uint64 = 0x1
)
