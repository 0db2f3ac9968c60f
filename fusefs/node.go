package fusefs

import (
	"context"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/sirupsen/logrus"
)

// node is a single entry of the index, either the root directory or a secret
// file. It holds no state besides the entry's id.
type node struct {
	fs.Inode

	idx *secretfs.Index
	log logrus.FieldLogger
	ttl time.Duration
	id  uint64
}

var (
	_ fs.InodeEmbedder = (*node)(nil)

	_ fs.NodeLookuper  = (*node)(nil)
	_ fs.NodeGetattrer = (*node)(nil)
	_ fs.NodeReaddirer = (*node)(nil)
	_ fs.NodeOpener    = (*node)(nil)
	_ fs.NodeReader    = (*node)(nil)

	_ fs.NodeWriter        = (*node)(nil)
	_ fs.NodeCreater       = (*node)(nil)
	_ fs.NodeMkdirer       = (*node)(nil)
	_ fs.NodeMknoder       = (*node)(nil)
	_ fs.NodeUnlinker      = (*node)(nil)
	_ fs.NodeRmdirer       = (*node)(nil)
	_ fs.NodeRenamer       = (*node)(nil)
	_ fs.NodeLinker        = (*node)(nil)
	_ fs.NodeSymlinker     = (*node)(nil)
	_ fs.NodeSetattrer     = (*node)(nil)
	_ fs.NodeSetxattrer    = (*node)(nil)
	_ fs.NodeRemovexattrer = (*node)(nil)
)

// NewRoot returns the root node for serving idx. Most callers should use
// Mount instead.
func NewRoot(idx *secretfs.Index, log logrus.FieldLogger, ttl time.Duration) fs.InodeEmbedder {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &node{idx: idx, log: log, ttl: ttl, id: secretfs.RootID}
}

func (n *node) child(id uint64) *node {
	return &node{idx: n.idx, log: n.log, ttl: n.ttl, id: id}
}

// fillAttr copies the attributes of the entry id into out
func (n *node) fillAttr(id uint64, out *fuse.Attr) syscall.Errno {
	a, err := n.idx.Attributes(id)
	if err != nil {
		return toErrno(err)
	}

	out.Ino = a.ID
	out.Size = uint64(a.Size)
	out.Blocks = a.Blocks
	out.Mode = stableMode(a.IsDir()) | uint32(a.Mode.Perm())
	out.Nlink = a.Nlink
	out.Owner = fuse.Owner{Uid: a.UID, Gid: a.GID}
	out.Blksize = a.BlockSize
	out.SetTimes(&a.ModTime, &a.ModTime, &a.ModTime)

	return 0
}

func stableMode(dir bool) uint32 {
	if dir {
		return fuse.S_IFDIR
	}

	return fuse.S_IFREG
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	id, err := n.idx.Lookup(n.id, name)
	if err != nil {
		// misses are routine (shells probe for all kinds of files)
		n.log.WithField("name", name).Debug("lookup miss")

		return nil, toErrno(err)
	}

	if errno := n.fillAttr(id, &out.Attr); errno != 0 {
		return nil, errno
	}

	out.SetEntryTimeout(n.ttl)
	out.SetAttrTimeout(n.ttl)

	stable := fs.StableAttr{Mode: out.Attr.Mode & syscall.S_IFMT, Ino: id}

	return n.NewInode(ctx, n.child(id), stable), 0
}

func (n *node) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if errno := n.fillAttr(n.id, &out.Attr); errno != 0 {
		return errno
	}

	out.SetTimeout(n.ttl)

	return 0
}

func (n *node) Readdir(_ context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.idx.ListDirectory(n.id)
	if err != nil {
		return nil, toErrno(err)
	}

	// go-fuse adds "." and ".." itself
	list := make([]fuse.DirEntry, 0, len(entries))

	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}

		list = append(list, fuse.DirEntry{Name: e.Name, Ino: e.ID, Mode: stableMode(e.IsDir())})
	}

	return fs.NewListDirStream(list), 0
}

// Open allows read-only opens. Content never changes, so the kernel may keep
// its page cache across opens.
func (n *node) Open(_ context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_APPEND|syscall.O_TRUNC|syscall.O_CREAT) != 0 {
		_, err := n.idx.Write(n.id, 0, nil)

		return nil, 0, n.refuse("open", err)
	}

	if _, err := n.idx.Attributes(n.id); err != nil {
		return nil, 0, toErrno(err)
	}

	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Read(_ context.Context, _ fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	// copied, so that the index can be wiped even if the kernel still holds
	// the result
	cnt, err := n.idx.ReadAt(n.id, dest, off)
	if err != nil {
		return nil, toErrno(err)
	}

	return fuse.ReadResultData(dest[:cnt]), 0
}

// refuse logs a rejected mutation, and returns the errno for err
func (n *node) refuse(op string, err error) syscall.Errno {
	n.log.WithFields(logrus.Fields{"op": op, "ino": n.id}).
		Warn("rejected write attempt on read-only filesystem")

	return toErrno(err)
}

func (n *node) Write(_ context.Context, _ fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	_, err := n.idx.Write(n.id, off, data)

	return 0, n.refuse("write", err)
}

func (n *node) Create(_ context.Context, name string, _, _ uint32,
	_ *fuse.EntryOut,
) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	_, err := n.idx.Create(n.id, name)

	return nil, nil, 0, n.refuse("create", err)
}

func (n *node) Mkdir(_ context.Context, name string, _ uint32, _ *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	_, err := n.idx.Mkdir(n.id, name)

	return nil, n.refuse("mkdir", err)
}

func (n *node) Mknod(_ context.Context, name string, _, _ uint32, _ *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	_, err := n.idx.Mknod(n.id, name)

	return nil, n.refuse("mknod", err)
}

func (n *node) Unlink(_ context.Context, name string) syscall.Errno {
	return n.refuse("unlink", n.idx.Unlink(n.id, name))
}

func (n *node) Rmdir(_ context.Context, name string) syscall.Errno {
	return n.refuse("rmdir", n.idx.Rmdir(n.id, name))
}

func (n *node) Rename(_ context.Context, name string, newParent fs.InodeEmbedder, newName string, _ uint32) syscall.Errno {
	var target uint64
	if p, ok := newParent.(*node); ok {
		target = p.id
	}

	return n.refuse("rename", n.idx.Rename(n.id, name, target, newName))
}

func (n *node) Link(_ context.Context, target fs.InodeEmbedder, name string, _ *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	var id uint64
	if t, ok := target.(*node); ok {
		id = t.id
	}

	return nil, n.refuse("link", n.idx.Link(id, n.id, name))
}

func (n *node) Symlink(_ context.Context, target, name string, _ *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return nil, n.refuse("symlink", n.idx.Symlink(n.id, name, target))
}

// Setattr refuses every change: chmod, chown, utimes and truncate all arrive
// here.
func (n *node) Setattr(_ context.Context, _ fs.FileHandle, in *fuse.SetAttrIn, _ *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		return n.refuse("truncate", n.idx.Truncate(n.id, int64(size)))
	}

	return n.refuse("setattr", n.idx.SetAttr(n.id))
}

func (n *node) Setxattr(_ context.Context, attr string, data []byte, _ uint32) syscall.Errno {
	return n.refuse("setxattr", n.idx.SetXattr(n.id, attr, data))
}

func (n *node) Removexattr(_ context.Context, attr string) syscall.Errno {
	return n.refuse("removexattr", n.idx.RemoveXattr(n.id, attr))
}
